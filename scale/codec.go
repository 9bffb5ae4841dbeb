// Package scale implements the SCALE binary codec: a compact,
// non-self-describing wire format for values whose shape both sides of a
// connection already agree on. Fixed-width integers are little-endian,
// sequences carry a compact length prefix, options a single tag byte and
// variants a single index byte; nothing else is framed.
//
// The encoder and decoder below expose one explicit primitive per value
// kind. Higher-level, shape-driven encoding lives in shape.go.
package scale

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// Encoder appends SCALE-encoded values to an in-memory buffer. The zero
// value is ready to use.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded output accumulated so far. The returned slice
// aliases the encoder's buffer and must not be modified if the encoder is
// used again.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset discards the buffered output, retaining the allocation.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// WriteBool writes a bool as a single 0x00/0x01 byte.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// WriteU8 writes an unsigned 8-bit integer.
func (e *Encoder) WriteU8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteU16 writes an unsigned 16-bit integer, little-endian.
func (e *Encoder) WriteU16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// WriteU32 writes an unsigned 32-bit integer, little-endian.
func (e *Encoder) WriteU32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// WriteU64 writes an unsigned 64-bit integer, little-endian.
func (e *Encoder) WriteU64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// WriteU128 writes an unsigned 128-bit integer as 16 little-endian bytes.
// Values wider than 128 bits are rejected.
func (e *Encoder) WriteU128(v *uint256.Int) error {
	if v.BitLen() > 128 {
		return fmt.Errorf("%w: %s overflows u128", ErrBadShape, v)
	}
	b := v.Bytes32() // big-endian, zero-padded
	for i := 31; i >= 16; i-- {
		e.buf = append(e.buf, b[i])
	}
	return nil
}

// WriteI8 writes a signed 8-bit integer (two's complement).
func (e *Encoder) WriteI8(v int8) {
	e.buf = append(e.buf, byte(v))
}

// WriteI16 writes a signed 16-bit integer, little-endian two's complement.
func (e *Encoder) WriteI16(v int16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v))
}

// WriteI32 writes a signed 32-bit integer, little-endian two's complement.
func (e *Encoder) WriteI32(v int32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

// WriteI64 writes a signed 64-bit integer, little-endian two's complement.
func (e *Encoder) WriteI64(v int64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
}

// WriteRaw appends bytes verbatim, with no length prefix. Used for
// fixed-size arrays and for pre-encoded material.
func (e *Encoder) WriteRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteBytes writes a variable-length byte string: compact length prefix
// followed by the raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteCompact(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteString writes a UTF-8 string with the same layout as WriteBytes.
func (e *Encoder) WriteString(s string) {
	e.WriteCompact(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteOptionTag writes the presence byte of an option. The caller encodes
// the payload afterwards when present is true.
func (e *Encoder) WriteOptionTag(present bool) {
	e.WriteBool(present)
}

// WriteVariantIndex writes the index byte identifying a variant. The
// caller encodes that variant's fields afterwards, in declaration order.
func (e *Encoder) WriteVariantIndex(idx uint8) {
	e.buf = append(e.buf, idx)
}

// Decoder reads SCALE-encoded values from a byte slice. It does not copy
// the input; callers must not mutate it while decoding.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder returns a decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

func (d *Decoder) read(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, d.Remaining())
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadBool reads a single byte and interprets 0x00/0x01 as false/true.
// Any other byte is an encoding error.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.read(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte %#02x", ErrBadShape, b[0])
	}
}

// ReadU8 reads an unsigned 8-bit integer.
func (d *Decoder) ReadU8() (uint8, error) {
	b, err := d.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian unsigned 16-bit integer.
func (d *Decoder) ReadU16() (uint16, error) {
	b, err := d.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian unsigned 32-bit integer.
func (d *Decoder) ReadU32() (uint32, error) {
	b, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian unsigned 64-bit integer.
func (d *Decoder) ReadU64() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadU128 reads 16 little-endian bytes into a uint256.Int.
func (d *Decoder) ReadU128() (*uint256.Int, error) {
	b, err := d.read(16)
	if err != nil {
		return nil, err
	}
	var be [16]byte
	for i := 0; i < 16; i++ {
		be[i] = b[15-i]
	}
	return new(uint256.Int).SetBytes(be[:]), nil
}

// ReadI8 reads a signed 8-bit integer.
func (d *Decoder) ReadI8() (int8, error) {
	v, err := d.ReadU8()
	return int8(v), err
}

// ReadI16 reads a little-endian signed 16-bit integer.
func (d *Decoder) ReadI16() (int16, error) {
	v, err := d.ReadU16()
	return int16(v), err
}

// ReadI32 reads a little-endian signed 32-bit integer.
func (d *Decoder) ReadI32() (int32, error) {
	v, err := d.ReadU32()
	return int32(v), err
}

// ReadI64 reads a little-endian signed 64-bit integer.
func (d *Decoder) ReadI64() (int64, error) {
	v, err := d.ReadU64()
	return int64(v), err
}

// ReadRaw reads exactly n bytes with no framing. The result is copied so
// it remains valid independently of the input slice.
func (d *Decoder) ReadRaw(n int) ([]byte, error) {
	b, err := d.read(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadBytes reads a compact length prefix followed by that many bytes.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadCompact()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, fmt.Errorf("%w: declared length %d exceeds %d remaining bytes", ErrTruncated, n, d.Remaining())
	}
	return d.ReadRaw(int(n))
}

// ReadString reads a compact length prefix followed by UTF-8 bytes.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadOptionTag reads an option's presence byte.
func (d *Decoder) ReadOptionTag() (bool, error) {
	return d.ReadBool()
}

// ReadVariantIndex reads a variant's index byte. Matching the index
// against the declared variants is the caller's job; DecodeValue reports
// ErrUnknownVariant for indices with no declaration.
func (d *Decoder) ReadVariantIndex() (uint8, error) {
	return d.ReadU8()
}
