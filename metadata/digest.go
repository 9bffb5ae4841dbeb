package metadata

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clydemeng/scalebind/hashers"
	"github.com/clydemeng/scalebind/scale"
)

// Subset names the part of a schema a digest should cover. Order and
// duplicates are irrelevant: the digest depends only on set membership and
// on the structure of the selected items.
type Subset struct {
	Entities   []string
	Interfaces []string
}

// All returns a subset covering every entity and interface of s.
func All(s *Schema) Subset {
	return Subset{Entities: s.EntityNames(), Interfaces: s.InterfaceNames()}
}

// canonical returns sorted, de-duplicated copies of the name lists.
func (sub Subset) canonical() Subset {
	return Subset{
		Entities:   sortedUnique(sub.Entities),
		Interfaces: sortedUnique(sub.Interfaces),
	}
}

func sortedUnique(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	j := 0
	for i, n := range out {
		if i > 0 && n == out[j-1] {
			continue
		}
		out[j] = n
		j++
	}
	return out[:j]
}

// cacheKey is unambiguous because it is built from the canonical form and
// separates the two namespaces.
func (sub Subset) cacheKey() string {
	var b strings.Builder
	for _, n := range sub.Entities {
		b.WriteString("e:")
		b.WriteString(n)
		b.WriteByte('\x00')
	}
	for _, n := range sub.Interfaces {
		b.WriteString("i:")
		b.WriteString(n)
		b.WriteByte('\x00')
	}
	return b.String()
}

const digestCacheSize = 256

// Digester computes 32-byte digests over subsets of one schema. The hash
// function is a schema-specified parameter; blake2b-256 is the default.
// Computed digests are memoized, so repeated verification of the same call
// shapes is cheap. A Digester is safe for concurrent use.
type Digester struct {
	schema *Schema
	hash   hashers.Hash256
	cache  *lru.Cache[string, [32]byte]
}

// NewDigester returns a Digester over s using blake2b-256.
func NewDigester(s *Schema) *Digester {
	return NewDigesterWithHash(s, hashers.Blake2b256)
}

// NewDigesterWithHash returns a Digester over s using the given hash.
func NewDigesterWithHash(s *Schema, h hashers.Hash256) *Digester {
	cache, err := lru.New[string, [32]byte](digestCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &Digester{schema: s, hash: h, cache: cache}
}

// Schema returns the schema this digester reads from.
func (d *Digester) Schema() *Schema {
	return d.schema
}

// Digest computes the digest of the named subset: the selected items'
// structural descriptions are serialized in canonical (lexicographic)
// order, concatenated and hashed. Unknown names are an error.
func (d *Digester) Digest(sub Subset) ([32]byte, error) {
	c := sub.canonical()
	key := c.cacheKey()
	if h, ok := d.cache.Get(key); ok {
		return h, nil
	}
	enc := scale.NewEncoder()
	for _, name := range c.Entities {
		ent, err := d.schema.Entity(name)
		if err != nil {
			return [32]byte{}, err
		}
		encodeEntityStructure(enc, ent)
	}
	for _, name := range c.Interfaces {
		ifc, err := d.schema.Interface(name)
		if err != nil {
			return [32]byte{}, err
		}
		encodeInterfaceStructure(enc, ifc)
	}
	h := d.hash(enc.Bytes())
	d.cache.Add(key, h)
	return h, nil
}

// EntityDigest is shorthand for a single-entity subset.
func (d *Digester) EntityDigest(name string) ([32]byte, error) {
	return d.Digest(Subset{Entities: []string{name}})
}

// CallDigest computes the digest of the minimal schema subset a call
// depends on: the operation's name, wire indices and argument shapes,
// qualified by its entity.
func (d *Digester) CallDigest(entity, operation string) ([32]byte, error) {
	key := "c:" + entity + "\x00" + operation
	if h, ok := d.cache.Get(key); ok {
		return h, nil
	}
	ent, err := d.schema.Entity(entity)
	if err != nil {
		return [32]byte{}, err
	}
	op, err := ent.Operation(operation)
	if err != nil {
		return [32]byte{}, err
	}
	enc := scale.NewEncoder()
	enc.WriteString(ent.Name)
	enc.WriteU8(ent.Index)
	encodeOperationStructure(enc, op)
	h := d.hash(enc.Bytes())
	d.cache.Add(key, h)
	return h, nil
}

// StorageDigest computes the digest of the subset needed to interpret a
// stored value: the item's name, key hashers, key shapes and value shape,
// qualified by its entity.
func (d *Digester) StorageDigest(entity, item string) ([32]byte, error) {
	key := "s:" + entity + "\x00" + item
	if h, ok := d.cache.Get(key); ok {
		return h, nil
	}
	ent, err := d.schema.Entity(entity)
	if err != nil {
		return [32]byte{}, err
	}
	si, err := ent.StorageItem(item)
	if err != nil {
		return [32]byte{}, err
	}
	enc := scale.NewEncoder()
	enc.WriteString(ent.Name)
	encodeStorageItemStructure(enc, si)
	h := d.hash(enc.Bytes())
	d.cache.Add(key, h)
	return h, nil
}

// MethodDigest computes the digest of one runtime-API method's signature,
// qualified by its interface.
func (d *Digester) MethodDigest(iface, method string) ([32]byte, error) {
	key := "m:" + iface + "\x00" + method
	if h, ok := d.cache.Get(key); ok {
		return h, nil
	}
	ifc, err := d.schema.Interface(iface)
	if err != nil {
		return [32]byte{}, err
	}
	m, err := ifc.Method(method)
	if err != nil {
		return [32]byte{}, err
	}
	enc := scale.NewEncoder()
	enc.WriteString(ifc.Name)
	encodeMethodStructure(enc, m)
	h := d.hash(enc.Bytes())
	d.cache.Add(key, h)
	return h, nil
}

// Verify compares an embedded digest against a freshly computed one over
// the same subset, returning ErrSchemaMismatch when they differ.
func (d *Digester) Verify(embedded [32]byte, sub Subset) error {
	live, err := d.Digest(sub)
	if err != nil {
		return err
	}
	if live != embedded {
		return fmt.Errorf("%w: expected %x, live schema digests to %x", ErrSchemaMismatch, embedded, live)
	}
	return nil
}

func encodeEntityStructure(e *scale.Encoder, ent *Entity) {
	e.WriteString(ent.Name)
	e.WriteU8(ent.Index)
	e.WriteCompact(uint64(len(ent.Operations)))
	for i := range ent.Operations {
		encodeOperationStructure(e, &ent.Operations[i])
	}
	e.WriteCompact(uint64(len(ent.StorageItems)))
	for i := range ent.StorageItems {
		encodeStorageItemStructure(e, &ent.StorageItems[i])
	}
}

func encodeOperationStructure(e *scale.Encoder, op *Operation) {
	e.WriteString(op.Name)
	e.WriteU8(op.Index)
	e.WriteCompact(uint64(len(op.Args)))
	for _, arg := range op.Args {
		e.WriteString(arg.Name)
		arg.Shape.EncodeStructure(e)
	}
}

func encodeStorageItemStructure(e *scale.Encoder, si *StorageItem) {
	e.WriteString(si.Name)
	e.WriteCompact(uint64(len(si.Hashers)))
	for _, h := range si.Hashers {
		e.WriteU8(uint8(h))
	}
	e.WriteCompact(uint64(len(si.Keys)))
	for _, k := range si.Keys {
		k.EncodeStructure(e)
	}
	si.Value.EncodeStructure(e)
}

func encodeInterfaceStructure(e *scale.Encoder, ifc *Interface) {
	e.WriteString(ifc.Name)
	e.WriteCompact(uint64(len(ifc.Methods)))
	for i := range ifc.Methods {
		encodeMethodStructure(e, &ifc.Methods[i])
	}
}

func encodeMethodStructure(e *scale.Encoder, m *Method) {
	e.WriteString(m.Name)
	e.WriteCompact(uint64(len(m.Args)))
	for _, arg := range m.Args {
		e.WriteString(arg.Name)
		arg.Shape.EncodeStructure(e)
	}
	if m.Result != nil {
		e.WriteOptionTag(true)
		m.Result.EncodeStructure(e)
	} else {
		e.WriteOptionTag(false)
	}
}
