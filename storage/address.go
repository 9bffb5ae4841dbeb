// Package storage derives the wire-level lookup keys for pieces of remote
// state. A key is hash(entity) ++ hash(item) ++ one hashed-or-raw segment
// per map key, in declared order; which hash applies to which segment is
// part of the schema.
package storage

import (
	"fmt"

	"github.com/clydemeng/scalebind/hashers"
	"github.com/clydemeng/scalebind/metadata"
	"github.com/clydemeng/scalebind/scale"
)

// Address names one piece of remote state: an entity, a storage item and
// the key parts digging into it (none for plain items, possibly fewer than
// declared when the key is a prefix for iteration). Addresses are
// immutable once constructed and derivation is a pure function: equal
// inputs always produce equal bytes.
type Address struct {
	entity    string
	item      string
	keys      []any
	digest    [32]byte
	hasDigest bool
}

// NewAddress returns a dynamic address with no embedded digest; Verify on
// such an address always succeeds.
func NewAddress(entity, item string, keys ...any) *Address {
	return &Address{entity: entity, item: item, keys: keys}
}

// NewStaticAddress returns an address carrying the digest embedded at
// generation time over the schema subset needed to interpret the stored
// value's shape.
func NewStaticAddress(entity, item string, digest [32]byte, keys ...any) *Address {
	return &Address{entity: entity, item: item, keys: keys, digest: digest, hasDigest: true}
}

// Entity returns the entity name.
func (a *Address) Entity() string { return a.entity }

// Item returns the storage item name.
func (a *Address) Item() string { return a.item }

// Digest returns the embedded digest and whether one is present.
func (a *Address) Digest() ([32]byte, bool) { return a.digest, a.hasDigest }

// Prefix returns the two-hash root of a storage item's key space:
// twox128(entity) ++ twox128(item). Every key the item owns starts with
// these 32 bytes, so the prefix is what a remote key-value scan iterates
// under.
func Prefix(entity, item string) []byte {
	out := make([]byte, 0, 32)
	out = append(out, hashers.Twox128.Apply([]byte(entity))...)
	out = append(out, hashers.Twox128.Apply([]byte(item))...)
	return out
}

// Key derives the full lookup key against the given schema: the item's
// prefix followed by each key part encoded with its declared shape and
// passed through its declared hasher. Supplying fewer key parts than
// declared yields a scan prefix; supplying more is an error.
func (a *Address) Key(s *metadata.Schema) ([]byte, error) {
	ent, err := s.Entity(a.entity)
	if err != nil {
		return nil, err
	}
	item, err := ent.StorageItem(a.item)
	if err != nil {
		return nil, err
	}
	if len(a.keys) > len(item.Keys) {
		return nil, fmt.Errorf("storage: %s.%s takes %d key parts, got %d",
			a.entity, a.item, len(item.Keys), len(a.keys))
	}
	out := Prefix(a.entity, a.item)
	for i, part := range a.keys {
		encoded, err := scale.Encode(item.Keys[i], part)
		if err != nil {
			return nil, fmt.Errorf("storage: %s.%s key part %d: %w", a.entity, a.item, i, err)
		}
		out = append(out, item.Hashers[i].Apply(encoded)...)
	}
	return out, nil
}

// Verify compares the embedded digest against a fresh digest of the
// subset needed to interpret the stored value, so a drifted schema is
// caught before the request is issued. Digestless addresses pass.
func (a *Address) Verify(d *metadata.Digester) error {
	if !a.hasDigest {
		return nil
	}
	live, err := d.StorageDigest(a.entity, a.item)
	if err != nil {
		return err
	}
	if live != a.digest {
		return fmt.Errorf("%w: address %s.%s", metadata.ErrSchemaMismatch, a.entity, a.item)
	}
	return nil
}
