package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Pebble is a ledger backed by an embedded Pebble LSM store.
type Pebble struct {
	db   *pebble.DB
	sync bool
}

// PebbleOptions configures OpenPebble.
type PebbleOptions struct {
	// Sync forces an fsync on every Set.
	Sync bool
}

// OpenPebble opens (creating if needed) a Pebble ledger in dir.
func OpenPebble(dir string, opts PebbleOptions) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Pebble{db: db, sync: opts.Sync}, nil
}

// Close flushes and closes the store.
func (p *Pebble) Close() error {
	return p.db.Close()
}

// Get returns a copy of the value under key, or nil if absent.
func (p *Pebble) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap(OpGet, key, err)
	}
	val, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(OpGet, key, err)
	}
	// val is only valid until closer.Close()
	out := append([]byte(nil), val...)
	_ = closer.Close()
	return out, nil
}

// Set overwrites the value under key.
func (p *Pebble) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return wrap(OpSet, key, err)
	}
	opts := pebble.NoSync
	if p.sync {
		opts = pebble.Sync
	}
	return wrap(OpSet, key, p.db.Set([]byte(key), value, opts))
}
