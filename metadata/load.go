package metadata

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clydemeng/scalebind/hashers"
	"github.com/clydemeng/scalebind/scale"
)

// The on-disk schema document. Shapes are written in a small textual
// grammar: the primitives (bool, u8..u128, i8..i64, str, bytes),
// compact<uN>, vec<T>, option<T>, [T; N], and bare names referring to
// entries in the top-level types section.
type schemaDoc struct {
	Version    uint32             `yaml:"version"`
	Types      map[string]typeDoc `yaml:"types"`
	Entities   []entityDoc        `yaml:"entities"`
	Interfaces []interfaceDoc     `yaml:"interfaces"`
}

type typeDoc struct {
	Composite []fieldDoc   `yaml:"composite"`
	Variant   []variantDoc `yaml:"variant"`
}

type fieldDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type variantDoc struct {
	Name   string     `yaml:"name"`
	Index  uint8      `yaml:"index"`
	Fields []fieldDoc `yaml:"fields"`
}

type entityDoc struct {
	Name    string       `yaml:"name"`
	Index   uint8        `yaml:"index"`
	Calls   []callDoc    `yaml:"calls"`
	Storage []storageDoc `yaml:"storage"`
}

type callDoc struct {
	Name  string     `yaml:"name"`
	Index uint8      `yaml:"index"`
	Args  []fieldDoc `yaml:"args"`
}

type storageDoc struct {
	Name    string   `yaml:"name"`
	Hashers []string `yaml:"hashers"`
	Keys    []string `yaml:"keys"`
	Value   string   `yaml:"value"`
}

type interfaceDoc struct {
	Name    string      `yaml:"name"`
	Methods []methodDoc `yaml:"methods"`
}

type methodDoc struct {
	Name   string     `yaml:"name"`
	Args   []fieldDoc `yaml:"args"`
	Result string     `yaml:"result"`
}

// Load parses a schema description document. The format is YAML; JSON
// documents parse too since YAML is a superset.
func Load(data []byte) (*Schema, error) {
	var doc schemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata: parsing schema document: %w", err)
	}
	r := &shapeResolver{types: doc.Types, resolved: make(map[string]*scale.Shape)}

	s := &Schema{Version: doc.Version}
	seen := make(map[string]bool)
	for _, ed := range doc.Entities {
		if seen[ed.Name] {
			return nil, fmt.Errorf("metadata: duplicate entity %q", ed.Name)
		}
		seen[ed.Name] = true
		ent, err := loadEntity(ed, r)
		if err != nil {
			return nil, err
		}
		s.Entities = append(s.Entities, ent)
	}
	for _, id := range doc.Interfaces {
		if seen["interface:"+id.Name] {
			return nil, fmt.Errorf("metadata: duplicate interface %q", id.Name)
		}
		seen["interface:"+id.Name] = true
		ifc, err := loadInterface(id, r)
		if err != nil {
			return nil, err
		}
		s.Interfaces = append(s.Interfaces, ifc)
	}
	return s, nil
}

// LoadFile reads and parses a schema description from path.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: reading schema file: %w", err)
	}
	return Load(data)
}

func loadEntity(ed entityDoc, r *shapeResolver) (Entity, error) {
	ent := Entity{Name: ed.Name, Index: ed.Index}
	for _, cd := range ed.Calls {
		args, err := loadFields(cd.Args, r)
		if err != nil {
			return Entity{}, fmt.Errorf("entity %s call %s: %w", ed.Name, cd.Name, err)
		}
		ent.Operations = append(ent.Operations, Operation{Name: cd.Name, Index: cd.Index, Args: args})
	}
	for _, sd := range ed.Storage {
		if len(sd.Hashers) != len(sd.Keys) {
			return Entity{}, fmt.Errorf("metadata: entity %s storage %s declares %d hashers for %d keys",
				ed.Name, sd.Name, len(sd.Hashers), len(sd.Keys))
		}
		item := StorageItem{Name: sd.Name}
		for _, hn := range sd.Hashers {
			h, err := hashers.ParseStorageHasher(hn)
			if err != nil {
				return Entity{}, fmt.Errorf("entity %s storage %s: %w", ed.Name, sd.Name, err)
			}
			item.Hashers = append(item.Hashers, h)
		}
		for _, kt := range sd.Keys {
			shape, err := r.resolve(kt)
			if err != nil {
				return Entity{}, fmt.Errorf("entity %s storage %s key: %w", ed.Name, sd.Name, err)
			}
			item.Keys = append(item.Keys, shape)
		}
		if sd.Value == "" {
			return Entity{}, fmt.Errorf("metadata: entity %s storage %s has no value shape", ed.Name, sd.Name)
		}
		value, err := r.resolve(sd.Value)
		if err != nil {
			return Entity{}, fmt.Errorf("entity %s storage %s value: %w", ed.Name, sd.Name, err)
		}
		item.Value = value
		ent.StorageItems = append(ent.StorageItems, item)
	}
	return ent, nil
}

func loadInterface(id interfaceDoc, r *shapeResolver) (Interface, error) {
	ifc := Interface{Name: id.Name}
	for _, md := range id.Methods {
		args, err := loadFields(md.Args, r)
		if err != nil {
			return Interface{}, fmt.Errorf("interface %s method %s: %w", id.Name, md.Name, err)
		}
		m := Method{Name: md.Name, Args: args}
		if md.Result != "" {
			res, err := r.resolve(md.Result)
			if err != nil {
				return Interface{}, fmt.Errorf("interface %s method %s result: %w", id.Name, md.Name, err)
			}
			m.Result = res
		}
		ifc.Methods = append(ifc.Methods, m)
	}
	return ifc, nil
}

func loadFields(docs []fieldDoc, r *shapeResolver) ([]scale.Field, error) {
	fields := make([]scale.Field, 0, len(docs))
	for _, fd := range docs {
		shape, err := r.resolve(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		fields = append(fields, scale.Field{Name: fd.Name, Shape: shape})
	}
	return fields, nil
}

// shapeResolver parses shape expressions, resolving bare names against the
// document's types section. Resolved named shapes are shared, so an
// AccountData referenced twice is the same *scale.Shape.
type shapeResolver struct {
	types    map[string]typeDoc
	resolved map[string]*scale.Shape
	visiting map[string]bool
}

var primitiveShapes = map[string]scale.Kind{
	"bool":   scale.KindBool,
	"u8":     scale.KindU8,
	"u16":    scale.KindU16,
	"u32":    scale.KindU32,
	"u64":    scale.KindU64,
	"u128":   scale.KindU128,
	"i8":     scale.KindI8,
	"i16":    scale.KindI16,
	"i32":    scale.KindI32,
	"i64":    scale.KindI64,
	"str":    scale.KindString,
	"string": scale.KindString,
	"bytes":  scale.KindBytes,
}

func (r *shapeResolver) resolve(expr string) (*scale.Shape, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("metadata: empty shape expression")
	}
	if k, ok := primitiveShapes[expr]; ok {
		return scale.Primitive(k), nil
	}
	if expr == "compact" {
		return scale.Primitive(scale.KindCompact), nil
	}
	if inner, ok := generic(expr, "compact"); ok {
		k, isPrim := primitiveShapes[strings.TrimSpace(inner)]
		if !isPrim || k < scale.KindU8 || k > scale.KindU128 {
			return nil, fmt.Errorf("metadata: compact of non-unsigned shape %q", inner)
		}
		return scale.Primitive(scale.KindCompact), nil
	}
	if inner, ok := generic(expr, "vec"); ok {
		elem, err := r.resolve(inner)
		if err != nil {
			return nil, err
		}
		return scale.SequenceOf(elem), nil
	}
	if inner, ok := generic(expr, "option"); ok {
		elem, err := r.resolve(inner)
		if err != nil {
			return nil, err
		}
		return scale.OptionOf(elem), nil
	}
	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		body := expr[1 : len(expr)-1]
		sep := strings.LastIndex(body, ";")
		if sep < 0 {
			return nil, fmt.Errorf("metadata: malformed array shape %q", expr)
		}
		elem, err := r.resolve(body[:sep])
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(body[sep+1:]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("metadata: malformed array length in %q", expr)
		}
		return scale.ArrayOf(n, elem), nil
	}
	return r.resolveNamed(expr)
}

func (r *shapeResolver) resolveNamed(name string) (*scale.Shape, error) {
	if s, ok := r.resolved[name]; ok {
		return s, nil
	}
	td, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("metadata: unknown shape %q", name)
	}
	if r.visiting == nil {
		r.visiting = make(map[string]bool)
	}
	if r.visiting[name] {
		return nil, fmt.Errorf("metadata: recursive type %q", name)
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	var shape *scale.Shape
	switch {
	case td.Composite != nil:
		fields, err := loadFields(td.Composite, r)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		shape = scale.CompositeOf(fields...)
	case td.Variant != nil:
		var defs []scale.VariantDef
		for _, vd := range td.Variant {
			fields, err := loadFields(vd.Fields, r)
			if err != nil {
				return nil, fmt.Errorf("type %s variant %s: %w", name, vd.Name, err)
			}
			defs = append(defs, scale.VariantDef{Name: vd.Name, Index: vd.Index, Fields: fields})
		}
		shape = scale.VariantOf(defs...)
	default:
		return nil, fmt.Errorf("metadata: type %q is neither composite nor variant", name)
	}
	r.resolved[name] = shape
	return shape, nil
}

// generic matches expressions of the form name<inner>, returning inner.
func generic(expr, name string) (string, bool) {
	if strings.HasPrefix(expr, name+"<") && strings.HasSuffix(expr, ">") {
		return expr[len(name)+1 : len(expr)-1], true
	}
	return "", false
}
