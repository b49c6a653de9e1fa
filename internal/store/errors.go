package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the ledger has no bytes under a record key.
var ErrNotFound = errors.New("record not found")

// ErrIDCollision is returned when a freshly generated id is already taken.
var ErrIDCollision = errors.New("record id already in use")

// UpdateError reports a mutator that failed or produced an illegal record.
type UpdateError struct {
	ID  string
	Err error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update %s: %v", e.ID, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// OrphanError reports a record that was written but could not be
// registered in the index. The record exists and Get(ID) returns it; it is
// only missing from listings.
type OrphanError struct {
	ID  string
	Err error
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("record %s written but not indexed: %v", e.ID, e.Err)
}

func (e *OrphanError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
