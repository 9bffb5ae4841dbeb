// Package runtimeapi builds typed query payloads for runtime-API methods:
// the interface/method pair the remote dispatches on, plus the encoded
// arguments. Same construction and verification discipline as package tx.
package runtimeapi

import (
	"fmt"

	"github.com/clydemeng/scalebind/metadata"
	"github.com/clydemeng/scalebind/scale"
	"github.com/clydemeng/scalebind/tx"
)

// Payload is one runtime-API method invocation.
type Payload struct {
	iface     string
	method    string
	args      []any
	digest    [32]byte
	hasDigest bool
	checked   bool
}

// NewPayload returns a dynamic payload with no embedded digest.
func NewPayload(iface, method string, args ...any) *Payload {
	return &Payload{iface: iface, method: method, args: args}
}

// NewStaticPayload returns a payload carrying a generation-time digest of
// the method's signature.
func NewStaticPayload(iface, method string, digest [32]byte, args ...any) *Payload {
	return &Payload{iface: iface, method: method, args: args, digest: digest, hasDigest: true}
}

// Interface returns the interface name.
func (p *Payload) Interface() string { return p.iface }

// Method returns the method name.
func (p *Payload) Method() string { return p.method }

// Name returns the call string the remote dispatches on, in the
// conventional Interface_method form (e.g. "Core_version").
func (p *Payload) Name() string {
	return p.iface + "_" + p.method
}

// Digest returns the embedded digest and whether one is present.
func (p *Payload) Digest() ([32]byte, bool) { return p.digest, p.hasDigest }

// Checked reports whether the payload has passed verification.
func (p *Payload) Checked() bool { return p.checked }

// Verify compares the embedded digest against the live method signature,
// transitioning to Checked on a match. Mismatches are fatal for this call
// shape, as for tx payloads.
func (p *Payload) Verify(d *metadata.Digester) error {
	if p.checked {
		return nil
	}
	if p.hasDigest {
		live, err := d.MethodDigest(p.iface, p.method)
		if err != nil {
			return err
		}
		if live != p.digest {
			return fmt.Errorf("%w: method %s", metadata.ErrSchemaMismatch, p.Name())
		}
	}
	p.checked = true
	return nil
}

// Args encodes the argument list against the method's declared signature.
// The payload must be Checked first.
func (p *Payload) Args(s *metadata.Schema) ([]byte, error) {
	if !p.checked {
		return nil, fmt.Errorf("%w: method %s", tx.ErrUnverified, p.Name())
	}
	ifc, err := s.Interface(p.iface)
	if err != nil {
		return nil, err
	}
	m, err := ifc.Method(p.method)
	if err != nil {
		return nil, err
	}
	if len(p.args) != len(m.Args) {
		return nil, fmt.Errorf("runtimeapi: %s takes %d arguments, got %d", p.Name(), len(m.Args), len(p.args))
	}
	e := scale.NewEncoder()
	for i, arg := range m.Args {
		if err := scale.EncodeValue(e, arg.Shape, p.args[i]); err != nil {
			return nil, fmt.Errorf("runtimeapi: %s argument %s: %w", p.Name(), arg.Name, err)
		}
	}
	return e.Bytes(), nil
}

// DecodeResult decodes a raw response against the method's declared result
// shape. Methods with no declared result return nil for empty input.
func (p *Payload) DecodeResult(s *metadata.Schema, data []byte) (any, error) {
	ifc, err := s.Interface(p.iface)
	if err != nil {
		return nil, err
	}
	m, err := ifc.Method(p.method)
	if err != nil {
		return nil, err
	}
	if m.Result == nil {
		if len(data) != 0 {
			return nil, fmt.Errorf("runtimeapi: %s declares no result but got %d bytes", p.Name(), len(data))
		}
		return nil, nil
	}
	return scale.Decode(m.Result, data)
}
