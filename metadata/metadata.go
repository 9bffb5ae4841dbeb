// Package metadata models the schema description of a remote runtime: the
// named entities (grouped operations and stored items) and interfaces it
// exposes, and the shapes of their inputs and outputs. A Schema is loaded
// once per session and is read-only from then on, so any number of
// goroutines may query it without synchronization.
package metadata

import (
	"errors"
	"fmt"

	"github.com/clydemeng/scalebind/hashers"
	"github.com/clydemeng/scalebind/scale"
)

var (
	ErrEntityNotFound      = errors.New("metadata: entity not found")
	ErrOperationNotFound   = errors.New("metadata: operation not found")
	ErrStorageItemNotFound = errors.New("metadata: storage item not found")
	ErrInterfaceNotFound   = errors.New("metadata: interface not found")
	ErrMethodNotFound      = errors.New("metadata: method not found")

	// ErrSchemaMismatch means an embedded digest does not match the live
	// schema. The caller's compiled expectations no longer hold for that
	// call shape; regenerating its bindings is the only remedy.
	ErrSchemaMismatch = errors.New("metadata: schema digest mismatch")
)

// Schema is a versioned description of everything the remote runtime
// exposes. Treat it as immutable after construction.
type Schema struct {
	Version    uint32
	Entities   []Entity
	Interfaces []Interface
}

// Entity is a named group of operations and stored items. Index is the
// entity's discriminant in the outer call union on the wire.
type Entity struct {
	Name         string
	Index        uint8
	Operations   []Operation
	StorageItems []StorageItem
}

// Operation is a named, typed action invocable on an entity. Index is the
// operation's discriminant within the entity's call union.
type Operation struct {
	Name  string
	Index uint8
	Args  []scale.Field
}

// StorageItem describes one piece of stored state: the hashers and shapes
// of its key parts (empty for plain items) and the shape of its value.
// Hashers and Keys are index-aligned.
type StorageItem struct {
	Name    string
	Hashers []hashers.StorageHasher
	Keys    []*scale.Shape
	Value   *scale.Shape
}

// Interface is a named group of callable runtime-API methods.
type Interface struct {
	Name    string
	Methods []Method
}

// Method is one runtime-API method: its argument shapes and result shape.
type Method struct {
	Name   string
	Args   []scale.Field
	Result *scale.Shape
}

// Entity returns the named entity.
func (s *Schema) Entity(name string) (*Entity, error) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
}

// EntityNames returns the names of all entities, in declaration order.
func (s *Schema) EntityNames() []string {
	names := make([]string, len(s.Entities))
	for i := range s.Entities {
		names[i] = s.Entities[i].Name
	}
	return names
}

// Interface returns the named interface.
func (s *Schema) Interface(name string) (*Interface, error) {
	for i := range s.Interfaces {
		if s.Interfaces[i].Name == name {
			return &s.Interfaces[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
}

// InterfaceNames returns the names of all interfaces, in declaration order.
func (s *Schema) InterfaceNames() []string {
	names := make([]string, len(s.Interfaces))
	for i := range s.Interfaces {
		names[i] = s.Interfaces[i].Name
	}
	return names
}

// Operation returns the named operation of the entity.
func (e *Entity) Operation(name string) (*Operation, error) {
	for i := range e.Operations {
		if e.Operations[i].Name == name {
			return &e.Operations[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrOperationNotFound, e.Name, name)
}

// StorageItem returns the named storage item of the entity.
func (e *Entity) StorageItem(name string) (*StorageItem, error) {
	for i := range e.StorageItems {
		if e.StorageItems[i].Name == name {
			return &e.StorageItems[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrStorageItemNotFound, e.Name, name)
}

// Method returns the named method of the interface.
func (i *Interface) Method(name string) (*Method, error) {
	for j := range i.Methods {
		if i.Methods[j].Name == name {
			return &i.Methods[j], nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, i.Name, name)
}
