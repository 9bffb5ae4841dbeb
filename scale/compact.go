package scale

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Compact integers use the two low bits of the leading byte to select one
// of four size classes:
//
//	0b00  single byte, value in the upper six bits        (0 .. 63)
//	0b01  two bytes little-endian, value in the upper 14  (64 .. 2^14-1)
//	0b10  four bytes little-endian, value in the upper 30 (2^14 .. 2^30-1)
//	0b11  leading byte carries (length-4) in the upper six bits, followed
//	      by the value's minimal little-endian bytes      (2^30 .. 2^128-1)
//
// Every value has exactly one minimal encoding; the decoder rejects the
// rest with ErrNonCanonical so that encoding and decoding are inverses.

const (
	compactMax1 = 1<<6 - 1  // largest single-byte value
	compactMax2 = 1<<14 - 1 // largest two-byte value
	compactMax4 = 1<<30 - 1 // largest four-byte value
)

// WriteCompact writes v in its minimal compact form.
func (e *Encoder) WriteCompact(v uint64) {
	switch {
	case v <= compactMax1:
		e.buf = append(e.buf, byte(v)<<2)
	case v <= compactMax2:
		w := uint16(v)<<2 | 0b01
		e.buf = append(e.buf, byte(w), byte(w>>8))
	case v <= compactMax4:
		w := uint32(v)<<2 | 0b10
		e.buf = append(e.buf, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	default:
		n := minByteLen(v)
		e.buf = append(e.buf, byte(n-4)<<2|0b11)
		for i := 0; i < n; i++ {
			e.buf = append(e.buf, byte(v>>(8*i)))
		}
	}
}

// WriteCompactBig writes an arbitrary unsigned value up to 128 bits in its
// minimal compact form.
func (e *Encoder) WriteCompactBig(v *uint256.Int) error {
	if v.BitLen() > 128 {
		return fmt.Errorf("%w: %s overflows compact<u128>", ErrBadShape, v)
	}
	if v.IsUint64() {
		e.WriteCompact(v.Uint64())
		return nil
	}
	be := v.Bytes() // big-endian, minimal
	n := len(be)
	e.buf = append(e.buf, byte(n-4)<<2|0b11)
	for i := n - 1; i >= 0; i-- {
		e.buf = append(e.buf, be[i])
	}
	return nil
}

// ReadCompact reads a compact integer that fits in 64 bits. Values wider
// than that are an error; use ReadCompactBig when u128 is possible.
func (d *Decoder) ReadCompact() (uint64, error) {
	v, err := d.ReadCompactBig()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: compact value %s overflows u64", ErrBadShape, v)
	}
	return v.Uint64(), nil
}

// ReadCompactBig reads a compact integer of up to 128 bits.
func (d *Decoder) ReadCompactBig() (*uint256.Int, error) {
	b0, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	switch b0 & 0b11 {
	case 0b00:
		return uint256.NewInt(uint64(b0 >> 2)), nil
	case 0b01:
		b1, err := d.ReadU8()
		if err != nil {
			return nil, err
		}
		v := (uint64(b0) | uint64(b1)<<8) >> 2
		if v <= compactMax1 {
			return nil, fmt.Errorf("%w: %d in two-byte mode", ErrNonCanonical, v)
		}
		return uint256.NewInt(v), nil
	case 0b10:
		rest, err := d.read(3)
		if err != nil {
			return nil, err
		}
		v := (uint64(b0) | uint64(rest[0])<<8 | uint64(rest[1])<<16 | uint64(rest[2])<<24) >> 2
		if v <= compactMax2 {
			return nil, fmt.Errorf("%w: %d in four-byte mode", ErrNonCanonical, v)
		}
		return uint256.NewInt(v), nil
	default:
		n := int(b0>>2) + 4
		if n > 16 {
			return nil, fmt.Errorf("%w: compact length %d exceeds u128", ErrBadShape, n)
		}
		le, err := d.read(n)
		if err != nil {
			return nil, err
		}
		if le[n-1] == 0 {
			return nil, fmt.Errorf("%w: trailing zero byte in big-integer mode", ErrNonCanonical)
		}
		be := make([]byte, n)
		for i := 0; i < n; i++ {
			be[i] = le[n-1-i]
		}
		v := new(uint256.Int).SetBytes(be)
		if v.IsUint64() && v.Uint64() <= compactMax4 {
			return nil, fmt.Errorf("%w: %s in big-integer mode", ErrNonCanonical, v)
		}
		return v, nil
	}
}

// minByteLen returns the number of bytes needed to hold v (at least 4, the
// floor of the big-integer mode).
func minByteLen(v uint64) int {
	n := 0
	for v > 0 {
		n++
		v >>= 8
	}
	if n < 4 {
		n = 4
	}
	return n
}
