// Package index maintains the set of known record ids inside the ledger's
// flat key space.
//
// The ledger has no listing primitive, so every id ever created is recorded
// in one JSON array stored under a single reserved key. Registration is a
// read-modify-write:
//
//	fetch list ──► append id (if absent) ──► write full list
//
// # Lost-Update Race
//
// The ledger offers no compare-and-swap, so two RegisterKey calls that
// interleave between fetch and write can lose one of the ids: the later
// write overwrites the list the earlier write produced. This is an accepted
// property of the ledger's capability set. There is no retry loop because
// there is nothing to retry against; deployments that need every id
// registered must serialize registrations through a single writer.
//
// A record whose id was lost from the index is still intact and fetchable
// by id. It is only undiscoverable through listing.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/ledgerflow/internal/ledger"
)

// DefaultKey is the reserved ledger key holding the index.
const DefaultKey = "analyses:index"

// Error reports an index entry that exists but cannot be decoded.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("index %q: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsIndexError returns true if err is or wraps an index *Error.
func IsIndexError(err error) bool {
	var ie *Error
	return errors.As(err, &ie)
}

// Manager reads and appends to the index entry.
//
// Thread-safety: Manager holds no mutable state. Concurrent RegisterKey
// calls are subject to the lost-update race described in the package doc.
type Manager struct {
	ledger ledger.Client
	key    string
}

// New creates a Manager storing the index under DefaultKey.
func New(l ledger.Client) *Manager {
	return NewWithKey(l, DefaultKey)
}

// NewWithKey creates a Manager storing the index under key.
func NewWithKey(l ledger.Client, key string) *Manager {
	return &Manager{ledger: l, key: key}
}

// Key returns the reserved ledger key.
func (m *Manager) Key() string {
	return m.key
}

// ListKeys returns every registered id in stored order.
//
// An absent index entry is an empty list, not an error. An entry that is
// not a JSON array of strings returns *Error. Duplicates in the stored list
// are collapsed, keeping the first occurrence.
func (m *Manager) ListKeys(ctx context.Context) ([]string, error) {
	data, err := m.ledger.Get(ctx, m.key)
	if err != nil {
		return nil, err
	}
	return m.decode(data)
}

// RegisterKey appends id to the index unless already present.
// Calling it twice with the same id writes once.
//
// Not atomic: see the package documentation for the lost-update race.
// A corrupt existing entry is treated as empty and overwritten, so the
// index recovers on the next registration.
func (m *Manager) RegisterKey(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("register key: empty id")
	}

	data, err := m.ledger.Get(ctx, m.key)
	if err != nil {
		return fmt.Errorf("register key: %w", err)
	}

	ids, err := m.decode(data)
	if err != nil {
		ids = nil
	}

	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}

	ids = append(ids, id)
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("register key: %w", err)
	}

	if err := m.ledger.Set(ctx, m.key, encoded); err != nil {
		return fmt.Errorf("register key: %w", err)
	}
	return nil
}

func (m *Manager) decode(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Key: m.key, Err: err}
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
