package scale

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Kind enumerates the value kinds the codec understands.
type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindI8
	KindI16
	KindI32
	KindI64
	KindCompact // variable-width unsigned integer, up to 128 bits
	KindBytes   // variable-length byte string
	KindString  // variable-length UTF-8 string
	KindSequence
	KindOption
	KindArray // fixed-length, element count in Shape.Len
	KindComposite
	KindVariant
)

var kindNames = [...]string{
	"bool", "u8", "u16", "u32", "u64", "u128",
	"i8", "i16", "i32", "i64",
	"compact", "bytes", "string", "sequence", "option", "array",
	"composite", "variant",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Field is one named member of a composite or variant.
type Field struct {
	Name  string
	Shape *Shape
}

// VariantDef declares one alternative of a variant shape. Index is the
// wire-level discriminant and is fixed per schema version.
type VariantDef struct {
	Name   string
	Index  uint8
	Fields []Field
}

// Shape is a declarative descriptor of a value's wire form. Shapes are
// plain data: build them once (typically from a schema description) and
// share them freely; all codec operations treat them as read-only.
type Shape struct {
	Kind     Kind
	Elem     *Shape       // Sequence, Option, Array
	Len      int          // Array
	Fields   []Field      // Composite
	Variants []VariantDef // Variant
}

// Primitive returns a shape for a kind that needs no further structure.
func Primitive(k Kind) *Shape {
	return &Shape{Kind: k}
}

// SequenceOf returns the shape of a variable-length sequence of elem.
func SequenceOf(elem *Shape) *Shape {
	return &Shape{Kind: KindSequence, Elem: elem}
}

// OptionOf returns the shape of an optional elem.
func OptionOf(elem *Shape) *Shape {
	return &Shape{Kind: KindOption, Elem: elem}
}

// ArrayOf returns the shape of a fixed-length array of n elems.
func ArrayOf(n int, elem *Shape) *Shape {
	return &Shape{Kind: KindArray, Len: n, Elem: elem}
}

// CompositeOf returns the shape of a record with the given fields, encoded
// in declaration order with no framing.
func CompositeOf(fields ...Field) *Shape {
	return &Shape{Kind: KindComposite, Fields: fields}
}

// VariantOf returns the shape of a tagged union with the given alternatives.
func VariantOf(variants ...VariantDef) *Shape {
	return &Shape{Kind: KindVariant, Variants: variants}
}

// Option is the decoded form of an optional value.
type Option struct {
	Set   bool
	Value any
}

// Some wraps a present optional value.
func Some(v any) Option { return Option{Set: true, Value: v} }

// None is an absent optional value.
func None() Option { return Option{} }

// Variant is the decoded form of a tagged-union value. Fields are in
// declaration order for the named alternative.
type Variant struct {
	Name   string
	Fields []any
}

// EncodeValue encodes v against shape s, appending to e. The dynamic value
// mapping is:
//
//	bool            -> bool
//	u8..u64, i8..i64-> the exact Go type, or any integer that fits
//	u128, compact   -> *uint256.Int, or any unsigned integer
//	bytes, [u8; N]  -> []byte
//	string          -> string
//	sequence, array -> []any ([]byte when the element is u8)
//	option          -> Option
//	composite       -> []any, fields in declaration order
//	variant         -> Variant
//
// Encoding is pure: on error the encoder may hold partial output, but no
// other caller state is touched. Callers that need all-or-nothing output
// encode into a fresh Encoder and copy on success.
func EncodeValue(e *Encoder, s *Shape, v any) error {
	switch s.Kind {
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %T as bool", ErrBadShape, v)
		}
		e.WriteBool(b)
	case KindU8:
		u, ok := asUint64(v)
		if !ok || u > 0xff {
			return fmt.Errorf("%w: %v as u8", ErrBadShape, v)
		}
		e.WriteU8(uint8(u))
	case KindU16:
		u, ok := asUint64(v)
		if !ok || u > 0xffff {
			return fmt.Errorf("%w: %v as u16", ErrBadShape, v)
		}
		e.WriteU16(uint16(u))
	case KindU32:
		u, ok := asUint64(v)
		if !ok || u > 0xffffffff {
			return fmt.Errorf("%w: %v as u32", ErrBadShape, v)
		}
		e.WriteU32(uint32(u))
	case KindU64:
		u, ok := asUint64(v)
		if !ok {
			return fmt.Errorf("%w: %v as u64", ErrBadShape, v)
		}
		e.WriteU64(u)
	case KindU128:
		u, err := asUint256(v)
		if err != nil {
			return err
		}
		return e.WriteU128(u)
	case KindI8:
		i, ok := asInt64(v)
		if !ok || i < -0x80 || i > 0x7f {
			return fmt.Errorf("%w: %v as i8", ErrBadShape, v)
		}
		e.WriteI8(int8(i))
	case KindI16:
		i, ok := asInt64(v)
		if !ok || i < -0x8000 || i > 0x7fff {
			return fmt.Errorf("%w: %v as i16", ErrBadShape, v)
		}
		e.WriteI16(int16(i))
	case KindI32:
		i, ok := asInt64(v)
		if !ok || i < -0x80000000 || i > 0x7fffffff {
			return fmt.Errorf("%w: %v as i32", ErrBadShape, v)
		}
		e.WriteI32(int32(i))
	case KindI64:
		i, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %v as i64", ErrBadShape, v)
		}
		e.WriteI64(i)
	case KindCompact:
		u, err := asUint256(v)
		if err != nil {
			return err
		}
		return e.WriteCompactBig(u)
	case KindBytes:
		b, ok := asByteSlice(v)
		if !ok {
			return fmt.Errorf("%w: %T as bytes", ErrBadShape, v)
		}
		e.WriteBytes(b)
	case KindString:
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %T as string", ErrBadShape, v)
		}
		e.WriteString(str)
	case KindSequence:
		if b, ok := asByteSlice(v); ok && s.Elem.Kind == KindU8 {
			e.WriteBytes(b)
			return nil
		}
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%w: %T as sequence", ErrBadShape, v)
		}
		e.WriteCompact(uint64(len(items)))
		for i, item := range items {
			if err := EncodeValue(e, s.Elem, item); err != nil {
				return fmt.Errorf("sequence[%d]: %w", i, err)
			}
		}
	case KindOption:
		opt, ok := v.(Option)
		if !ok {
			return fmt.Errorf("%w: %T as option", ErrBadShape, v)
		}
		e.WriteOptionTag(opt.Set)
		if opt.Set {
			return EncodeValue(e, s.Elem, opt.Value)
		}
	case KindArray:
		if s.Elem.Kind == KindU8 {
			b, ok := asByteSlice(v)
			if !ok || len(b) != s.Len {
				return fmt.Errorf("%w: need [u8; %d]", ErrBadShape, s.Len)
			}
			e.WriteRaw(b)
			return nil
		}
		items, ok := v.([]any)
		if !ok || len(items) != s.Len {
			return fmt.Errorf("%w: need array of %d elements", ErrBadShape, s.Len)
		}
		for i, item := range items {
			if err := EncodeValue(e, s.Elem, item); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
	case KindComposite:
		fields, ok := v.([]any)
		if !ok || len(fields) != len(s.Fields) {
			return fmt.Errorf("%w: composite needs %d fields", ErrBadShape, len(s.Fields))
		}
		for i, f := range s.Fields {
			if err := EncodeValue(e, f.Shape, fields[i]); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
	case KindVariant:
		vv, ok := v.(Variant)
		if !ok {
			return fmt.Errorf("%w: %T as variant", ErrBadShape, v)
		}
		def := findVariantByName(s.Variants, vv.Name)
		if def == nil {
			return fmt.Errorf("%w: no variant named %q", ErrBadShape, vv.Name)
		}
		if len(vv.Fields) != len(def.Fields) {
			return fmt.Errorf("%w: variant %s needs %d fields", ErrBadShape, def.Name, len(def.Fields))
		}
		e.WriteVariantIndex(def.Index)
		for i, f := range def.Fields {
			if err := EncodeValue(e, f.Shape, vv.Fields[i]); err != nil {
				return fmt.Errorf("variant %s field %d: %w", def.Name, i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported kind %s", ErrBadShape, s.Kind)
	}
	return nil
}

// Encode is a convenience wrapper that encodes v against s into a fresh
// buffer.
func Encode(s *Shape, v any) ([]byte, error) {
	e := NewEncoder()
	if err := EncodeValue(e, s, v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// DecodeValue decodes one value of shape s from d, returning the canonical
// dynamic form documented on EncodeValue. Compact values that fit in 64
// bits decode to uint64, wider ones to *uint256.Int.
func DecodeValue(d *Decoder, s *Shape) (any, error) {
	switch s.Kind {
	case KindBool:
		return d.ReadBool()
	case KindU8:
		return d.ReadU8()
	case KindU16:
		return d.ReadU16()
	case KindU32:
		return d.ReadU32()
	case KindU64:
		return d.ReadU64()
	case KindU128:
		return d.ReadU128()
	case KindI8:
		return d.ReadI8()
	case KindI16:
		return d.ReadI16()
	case KindI32:
		return d.ReadI32()
	case KindI64:
		return d.ReadI64()
	case KindCompact:
		v, err := d.ReadCompactBig()
		if err != nil {
			return nil, err
		}
		if v.IsUint64() {
			return v.Uint64(), nil
		}
		return v, nil
	case KindBytes:
		return d.ReadBytes()
	case KindString:
		return d.ReadString()
	case KindSequence:
		if s.Elem.Kind == KindU8 {
			return d.ReadBytes()
		}
		n, err := d.ReadCompact()
		if err != nil {
			return nil, err
		}
		if n > uint64(d.Remaining()) {
			return nil, fmt.Errorf("%w: sequence of %d elements exceeds input", ErrTruncated, n)
		}
		items := make([]any, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := DecodeValue(d, s.Elem)
			if err != nil {
				return nil, fmt.Errorf("sequence[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return items, nil
	case KindOption:
		set, err := d.ReadOptionTag()
		if err != nil {
			return nil, err
		}
		if !set {
			return None(), nil
		}
		inner, err := DecodeValue(d, s.Elem)
		if err != nil {
			return nil, err
		}
		return Some(inner), nil
	case KindArray:
		if s.Elem.Kind == KindU8 {
			return d.ReadRaw(s.Len)
		}
		items := make([]any, 0, s.Len)
		for i := 0; i < s.Len; i++ {
			item, err := DecodeValue(d, s.Elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return items, nil
	case KindComposite:
		fields := make([]any, 0, len(s.Fields))
		for _, f := range s.Fields {
			fv, err := DecodeValue(d, f.Shape)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fields = append(fields, fv)
		}
		return fields, nil
	case KindVariant:
		idx, err := d.ReadVariantIndex()
		if err != nil {
			return nil, err
		}
		def := findVariantByIndex(s.Variants, idx)
		if def == nil {
			return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, idx)
		}
		fields := make([]any, 0, len(def.Fields))
		for i, f := range def.Fields {
			fv, err := DecodeValue(d, f.Shape)
			if err != nil {
				return nil, fmt.Errorf("variant %s field %d: %w", def.Name, i, err)
			}
			fields = append(fields, fv)
		}
		return Variant{Name: def.Name, Fields: fields}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", ErrBadShape, s.Kind)
	}
}

// Decode is a convenience wrapper that decodes exactly one value of shape
// s from data, rejecting trailing bytes.
func Decode(s *Shape, data []byte) (any, error) {
	d := NewDecoder(data)
	v, err := DecodeValue(d, s)
	if err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadShape, d.Remaining())
	}
	return v, nil
}

func findVariantByName(defs []VariantDef, name string) *VariantDef {
	for i := range defs {
		if defs[i].Name == name {
			return &defs[i]
		}
	}
	return nil
}

func findVariantByIndex(defs []VariantDef, idx uint8) *VariantDef {
	for i := range defs {
		if defs[i].Index == idx {
			return &defs[i]
		}
	}
	return nil
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case int8:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int16:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func asUint256(v any) (*uint256.Int, error) {
	if u, ok := v.(*uint256.Int); ok {
		return u, nil
	}
	if u, ok := asUint64(v); ok {
		return uint256.NewInt(u), nil
	}
	return nil, fmt.Errorf("%w: %T as unsigned integer", ErrBadShape, v)
}

func asByteSlice(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}
