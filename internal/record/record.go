package record

import (
	"bytes"
	"fmt"
)

// Record is one analysis tracked in the ledger.
//
// INVARIANTS:
//   - ID is unique across all records and never reused
//   - CreatedAt is set once at creation and never mutated
//   - Artifacts is non-empty only when Status is StatusCompleted
type Record struct {
	// ID is the opaque unique identifier allocated at creation.
	ID string

	// Payload is the encrypted input artifact.
	Payload []byte

	// Artifacts are the derived outputs attached on completion
	// (density map first, structure second for the placeholder backend).
	Artifacts [][]byte

	// CreatedAt is unix seconds at creation.
	CreatedAt int64

	// Owner is the identity of the creating principal.
	Owner string

	// Status is the current processing state.
	Status Status
}

// Validate checks the data-model invariants of a single record.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if r.Payload == nil {
		return fmt.Errorf("payload is required")
	}
	if r.CreatedAt < 0 {
		return fmt.Errorf("created_at must not be negative, got %d", r.CreatedAt)
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return err
	}
	if len(r.Artifacts) > 0 && r.Status != StatusCompleted {
		return fmt.Errorf("artifacts present on %s record", r.Status)
	}
	return nil
}

// ValidateUpdate checks that next is a legal successor of prev.
// Identity fields are immutable and the status change must be a legal
// transition.
func ValidateUpdate(prev, next Record) error {
	if next.ID != prev.ID {
		return fmt.Errorf("id changed from %q to %q", prev.ID, next.ID)
	}
	if next.CreatedAt != prev.CreatedAt {
		return fmt.Errorf("created_at changed from %d to %d", prev.CreatedAt, next.CreatedAt)
	}
	if next.Owner != prev.Owner {
		return fmt.Errorf("owner changed")
	}
	if !bytes.Equal(next.Payload, prev.Payload) {
		return fmt.Errorf("payload changed")
	}
	if !CanTransition(prev.Status, next.Status) {
		return fmt.Errorf("illegal transition %s -> %s", prev.Status, next.Status)
	}
	return next.Validate()
}

// Clone returns a deep copy so mutators cannot alias stored byte slices.
func (r Record) Clone() Record {
	out := r
	out.Payload = cloneBytes(r.Payload)
	if r.Artifacts != nil {
		out.Artifacts = make([][]byte, len(r.Artifacts))
		for i, a := range r.Artifacts {
			out.Artifacts[i] = cloneBytes(a)
		}
	}
	return out
}

// cloneBytes copies b, keeping nil and empty distinct.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
