// Package tx builds typed call payloads for transmission to a remote
// runtime. Construction is pure and offline; a payload is verified against
// live metadata exactly once, immediately before its bytes are handed to
// the transport.
package tx

import (
	"errors"
	"fmt"

	"github.com/clydemeng/scalebind/metadata"
	"github.com/clydemeng/scalebind/scale"
)

// ErrUnverified is returned when call data is requested from a payload
// that carries a digest but has not passed Verify.
var ErrUnverified = errors.New("tx: payload not verified against live schema")

// Payload bundles one typed operation invocation: entity, operation,
// ordered arguments and (for payloads produced from generated bindings)
// the 32-byte digest of the schema subset the call was compiled against.
//
// A payload starts Unchecked. Verify transitions it to Checked when the
// embedded digest matches the live schema; a mismatched payload is never
// serialized. The transition is one-way and idempotent.
type Payload struct {
	entity    string
	operation string
	args      []any
	digest    [32]byte
	hasDigest bool
	checked   bool
}

// NewPayload returns a dynamic payload with no embedded digest. It skips
// digest comparison but still must go through Verify before serializing.
func NewPayload(entity, operation string, args ...any) *Payload {
	return &Payload{entity: entity, operation: operation, args: args}
}

// NewStaticPayload returns a payload carrying a generation-time digest.
func NewStaticPayload(entity, operation string, digest [32]byte, args ...any) *Payload {
	return &Payload{entity: entity, operation: operation, args: args, digest: digest, hasDigest: true}
}

// Entity returns the entity name.
func (p *Payload) Entity() string { return p.entity }

// Operation returns the operation name.
func (p *Payload) Operation() string { return p.operation }

// Digest returns the embedded digest and whether one is present.
func (p *Payload) Digest() ([32]byte, bool) { return p.digest, p.hasDigest }

// Checked reports whether the payload has passed verification.
func (p *Payload) Checked() bool { return p.checked }

// Verify compares the embedded digest against a freshly computed digest of
// the call's schema subset. On a match the payload becomes Checked; on a
// mismatch it stays Unchecked and the error is fatal for this call shape:
// the caller's bindings no longer describe the live runtime, and only
// regenerating them helps. Digestless payloads become Checked directly.
func (p *Payload) Verify(d *metadata.Digester) error {
	if p.checked {
		return nil
	}
	if p.hasDigest {
		live, err := d.CallDigest(p.entity, p.operation)
		if err != nil {
			return err
		}
		if live != p.digest {
			return fmt.Errorf("%w: call %s.%s", metadata.ErrSchemaMismatch, p.entity, p.operation)
		}
	}
	p.checked = true
	return nil
}

// CallData encodes the payload for the wire: the entity's index byte, the
// operation's index byte, then each argument against its declared shape.
// The payload must be Checked first; an Unchecked payload produces no
// bytes.
func (p *Payload) CallData(s *metadata.Schema) ([]byte, error) {
	if !p.checked {
		return nil, fmt.Errorf("%w: call %s.%s", ErrUnverified, p.entity, p.operation)
	}
	e := scale.NewEncoder()
	if err := p.encodeTo(e, s); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func (p *Payload) encodeTo(e *scale.Encoder, s *metadata.Schema) error {
	ent, err := s.Entity(p.entity)
	if err != nil {
		return err
	}
	op, err := ent.Operation(p.operation)
	if err != nil {
		return err
	}
	if len(p.args) != len(op.Args) {
		return fmt.Errorf("tx: %s.%s takes %d arguments, got %d",
			p.entity, p.operation, len(op.Args), len(p.args))
	}
	e.WriteVariantIndex(ent.Index)
	e.WriteVariantIndex(op.Index)
	for i, arg := range op.Args {
		if err := scale.EncodeValue(e, arg.Shape, p.args[i]); err != nil {
			return fmt.Errorf("tx: %s.%s argument %s: %w", p.entity, p.operation, arg.Name, err)
		}
	}
	return nil
}

// Submit is the convenience path: verify against the digester's schema and
// encode in one step, returning the bytes ready for the transport.
func (p *Payload) Submit(d *metadata.Digester) ([]byte, error) {
	if err := p.Verify(d); err != nil {
		return nil, err
	}
	return p.CallData(d.Schema())
}
