// Package bindings replaces a code generator's output with a data-driven
// table. A generated client embeds one (name, shape, digest) triple per
// call, storage item and runtime-API method; Table precomputes the same
// triples from a schema snapshot, so the payloads and addresses it hands
// out carry digests exactly as statically generated bindings would.
//
// Construct a Table against the schema snapshot the caller was built for,
// then verify its products against whatever live schema the process holds
// at submission time.
package bindings

import (
	"github.com/clydemeng/scalebind/metadata"
	"github.com/clydemeng/scalebind/runtimeapi"
	"github.com/clydemeng/scalebind/storage"
	"github.com/clydemeng/scalebind/tx"
)

// Table holds the precomputed digest of every call, storage item and
// interface method of one schema snapshot. Read-only after New, safe for
// concurrent use.
type Table struct {
	calls   map[nameKey][32]byte
	items   map[nameKey][32]byte
	methods map[nameKey][32]byte
}

type nameKey struct {
	group string
	name  string
}

// New walks the schema and precomputes all digests with d. The digester's
// hash function thereby becomes the table's digest algorithm, as it would
// at generation time.
func New(d *metadata.Digester) (*Table, error) {
	t := &Table{
		calls:   make(map[nameKey][32]byte),
		items:   make(map[nameKey][32]byte),
		methods: make(map[nameKey][32]byte),
	}
	s := d.Schema()
	for _, ent := range s.Entities {
		for _, op := range ent.Operations {
			h, err := d.CallDigest(ent.Name, op.Name)
			if err != nil {
				return nil, err
			}
			t.calls[nameKey{ent.Name, op.Name}] = h
		}
		for _, item := range ent.StorageItems {
			h, err := d.StorageDigest(ent.Name, item.Name)
			if err != nil {
				return nil, err
			}
			t.items[nameKey{ent.Name, item.Name}] = h
		}
	}
	for _, ifc := range s.Interfaces {
		for _, m := range ifc.Methods {
			h, err := d.MethodDigest(ifc.Name, m.Name)
			if err != nil {
				return nil, err
			}
			t.methods[nameKey{ifc.Name, m.Name}] = h
		}
	}
	return t, nil
}

// Call returns a payload for entity.operation carrying the table's
// digest, exactly as a generated constructor would. Unknown pairs fall
// back to a digestless dynamic payload; encoding will fail on them later
// if the live schema does not know them either.
func (t *Table) Call(entity, operation string, args ...any) *tx.Payload {
	if h, ok := t.calls[nameKey{entity, operation}]; ok {
		return tx.NewStaticPayload(entity, operation, h, args...)
	}
	return tx.NewPayload(entity, operation, args...)
}

// Storage returns an address for entity.item carrying the table's digest.
func (t *Table) Storage(entity, item string, keys ...any) *storage.Address {
	if h, ok := t.items[nameKey{entity, item}]; ok {
		return storage.NewStaticAddress(entity, item, h, keys...)
	}
	return storage.NewAddress(entity, item, keys...)
}

// Method returns a runtime-API payload for iface.method carrying the
// table's digest.
func (t *Table) Method(iface, method string, args ...any) *runtimeapi.Payload {
	if h, ok := t.methods[nameKey{iface, method}]; ok {
		return runtimeapi.NewStaticPayload(iface, method, h, args...)
	}
	return runtimeapi.NewPayload(iface, method, args...)
}
