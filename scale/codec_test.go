package scale

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestFixedWidthLittleEndian(t *testing.T) {
	e := NewEncoder()
	e.WriteU16(0x1234)
	e.WriteU32(0xdeadbeef)
	e.WriteU64(0x0102030405060708)
	want := []byte{
		0x34, 0x12,
		0xef, 0xbe, 0xad, 0xde,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("encoded %x, want %x", e.Bytes(), want)
	}

	d := NewDecoder(e.Bytes())
	if v, _ := d.ReadU16(); v != 0x1234 {
		t.Fatalf("u16 = %#x", v)
	}
	if v, _ := d.ReadU32(); v != 0xdeadbeef {
		t.Fatalf("u32 = %#x", v)
	}
	if v, _ := d.ReadU64(); v != 0x0102030405060708 {
		t.Fatalf("u64 = %#x", v)
	}
	if d.Remaining() != 0 {
		t.Fatalf("%d trailing bytes", d.Remaining())
	}
}

func TestSignedRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteI8(-1)
	e.WriteI16(-2)
	e.WriteI32(-70000)
	e.WriteI64(-1 << 40)

	d := NewDecoder(e.Bytes())
	if v, _ := d.ReadI8(); v != -1 {
		t.Fatalf("i8 = %d", v)
	}
	if v, _ := d.ReadI16(); v != -2 {
		t.Fatalf("i16 = %d", v)
	}
	if v, _ := d.ReadI32(); v != -70000 {
		t.Fatalf("i32 = %d", v)
	}
	if v, _ := d.ReadI64(); v != -1<<40 {
		t.Fatalf("i64 = %d", v)
	}
}

func TestU128RoundTrip(t *testing.T) {
	v := new(uint256.Int).SetBytes([]byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	})
	e := NewEncoder()
	if err := e.WriteU128(v); err != nil {
		t.Fatal(err)
	}
	if e.Len() != 16 {
		t.Fatalf("u128 encodes to %d bytes", e.Len())
	}
	// little-endian: lowest byte first
	if e.Bytes()[0] != 0x10 || e.Bytes()[15] != 0x01 {
		t.Fatalf("unexpected byte order: %x", e.Bytes())
	}
	got, err := NewDecoder(e.Bytes()).ReadU128()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Eq(v) {
		t.Fatalf("round trip: got %s, want %s", got, v)
	}

	over := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	if err := NewEncoder().WriteU128(over); err == nil {
		t.Fatal("2^128 must not encode as u128")
	}
}

// TestCompactBoundaries pins the size class of every boundary value and
// checks that each round-trips exactly.
func TestCompactBoundaries(t *testing.T) {
	cases := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x04}},
		{42, []byte{0xa8}},
		{63, []byte{0xfc}},
		{64, []byte{0x01, 0x01}},
		{16383, []byte{0xfd, 0xff}},
		{16384, []byte{0x02, 0x00, 0x01, 0x00}},
		{1<<30 - 1, []byte{0xfe, 0xff, 0xff, 0xff}},
		{1 << 30, []byte{0x03, 0x00, 0x00, 0x00, 0x40}},
		{1 << 32, []byte{0x07, 0x00, 0x00, 0x00, 0x00, 0x01}},
		{1<<64 - 1, []byte{0x13, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}
	for _, c := range cases {
		e := NewEncoder()
		e.WriteCompact(c.value)
		if !bytes.Equal(e.Bytes(), c.want) {
			t.Fatalf("compact(%d) = %x, want %x", c.value, e.Bytes(), c.want)
		}
		got, err := NewDecoder(e.Bytes()).ReadCompact()
		if err != nil {
			t.Fatalf("compact(%d): decode: %v", c.value, err)
		}
		if got != c.value {
			t.Fatalf("compact(%d) round-tripped to %d", c.value, got)
		}
	}
}

func TestCompactBig(t *testing.T) {
	v := uint256.MustFromHex("0xffffffffffffffffffffffffffffffff") // u128 max
	e := NewEncoder()
	if err := e.WriteCompactBig(v); err != nil {
		t.Fatal(err)
	}
	if e.Len() != 17 {
		t.Fatalf("compact u128 max encodes to %d bytes", e.Len())
	}
	got, err := NewDecoder(e.Bytes()).ReadCompactBig()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Eq(v) {
		t.Fatalf("round trip: got %s", got)
	}

	over := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	if err := NewEncoder().WriteCompactBig(over); err == nil {
		t.Fatal("2^128 must not encode as compact")
	}
}

func TestCompactNonCanonical(t *testing.T) {
	cases := [][]byte{
		{0x01, 0x00},                               // 0 in two-byte mode
		{0xfe, 0x00, 0x00, 0x00},                   // 63 in four-byte mode
		{0x03, 0x2a, 0x00, 0x00, 0x00},             // 42 in big-integer mode
		{0x07, 0x00, 0x00, 0x00, 0x40, 0x00},       // trailing zero byte
	}
	for _, in := range cases {
		if _, err := NewDecoder(in).ReadCompactBig(); !errors.Is(err, ErrNonCanonical) {
			t.Fatalf("decoding %x: got %v, want ErrNonCanonical", in, err)
		}
	}
}

func TestTruncatedInput(t *testing.T) {
	cases := []func(*Decoder) error{
		func(d *Decoder) error { _, err := d.ReadU32(); return err },
		func(d *Decoder) error { _, err := d.ReadU64(); return err },
		func(d *Decoder) error { _, err := d.ReadU128(); return err },
		func(d *Decoder) error { _, err := d.ReadCompact(); return err },
		func(d *Decoder) error { _, err := d.ReadBytes(); return err },
	}
	for i, read := range cases {
		if err := read(NewDecoder([]byte{0xfd})); !errors.Is(err, ErrTruncated) {
			t.Fatalf("case %d: got %v, want ErrTruncated", i, err)
		}
	}

	// A declared length larger than the input must fail without allocating
	// the declared size.
	e := NewEncoder()
	e.WriteCompact(1 << 20)
	if _, err := NewDecoder(e.Bytes()).ReadBytes(); !errors.Is(err, ErrTruncated) {
		t.Fatal("oversized length prefix must be ErrTruncated")
	}
}

func TestBytesAndString(t *testing.T) {
	e := NewEncoder()
	e.WriteBytes([]byte{0xde, 0xad})
	e.WriteString("alice")

	d := NewDecoder(e.Bytes())
	b, err := d.ReadBytes()
	if err != nil || !bytes.Equal(b, []byte{0xde, 0xad}) {
		t.Fatalf("bytes = %x, err %v", b, err)
	}
	s, err := d.ReadString()
	if err != nil || s != "alice" {
		t.Fatalf("string = %q, err %v", s, err)
	}
}

func TestBoolStrictness(t *testing.T) {
	if _, err := NewDecoder([]byte{0x02}).ReadBool(); err == nil {
		t.Fatal("bool byte 0x02 must not decode")
	}
	v, err := NewDecoder([]byte{0x01}).ReadBool()
	if err != nil || !v {
		t.Fatalf("bool = %v, err %v", v, err)
	}
}
