package ledger

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// Memory is an in-process ledger.
//
// Thread-safety: safe for concurrent use. Individual Get/Set calls are
// atomic; sequences of calls are not, exactly like a remote ledger.
type Memory struct {
	entries *xsync.MapOf[string, []byte]
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: xsync.NewMapOf[string, []byte]()}
}

// Get returns a copy of the stored bytes, or nil if absent.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap(OpGet, key, err)
	}
	v, ok := m.entries.Load(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return wrap(OpSet, key, err)
	}
	m.entries.Store(key, append([]byte(nil), value...))
	return nil
}

// Delete removes a key. Not part of Client; tests use it to simulate
// entries lost from the ledger.
func (m *Memory) Delete(key string) {
	m.entries.Delete(key)
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	return m.entries.Size()
}
