package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Client is the ledger capability consumed by the record store.
type Client interface {
	// Get returns the bytes stored under key, or empty bytes if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the bytes stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Op identifies the ledger primitive that failed.
type Op string

const (
	OpGet Op = "get"
	OpSet Op = "set"
)

// Error reports a rejected write or a transport failure.
type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrReadOnly is returned by Set on a read-only session.
var ErrReadOnly = errors.New("ledger session is read-only")

// IsLedgerError returns true if err is or wraps a ledger *Error.
func IsLedgerError(err error) bool {
	var le *Error
	return errors.As(err, &le)
}

func wrap(op Op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Err: err}
}

// ReadOnly wraps a client so that every Set is rejected.
// Models an unauthenticated session that can browse but not write.
type ReadOnly struct {
	Client Client
}

// Get delegates to the wrapped client.
func (r ReadOnly) Get(ctx context.Context, key string) ([]byte, error) {
	return r.Client.Get(ctx, key)
}

// Set always fails with ErrReadOnly.
func (r ReadOnly) Set(_ context.Context, key string, _ []byte) error {
	return wrap(OpSet, key, ErrReadOnly)
}
