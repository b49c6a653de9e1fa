package ledger

import (
	"context"
	"fmt"
	"io"
)

// Driver names a ledger backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPebble   Driver = "pebble"
	DriverPostgres Driver = "postgres"
	DriverS3       Driver = "s3"
)

// Drivers lists every supported driver.
var Drivers = []Driver{DriverMemory, DriverSQLite, DriverPebble, DriverPostgres, DriverS3}

// Options selects and configures a backend for Open.
type Options struct {
	Driver Driver

	// Path is the database file (sqlite) or directory (pebble).
	Path string

	// DSN is the Postgres connection string.
	DSN string

	// S3 configures the s3 driver.
	S3 S3Config

	// ReadOnly wraps the opened client in ReadOnly.
	ReadOnly bool
}

// Open constructs the configured ledger. The returned closer releases the
// backend and is never nil.
func Open(ctx context.Context, opts Options) (Client, io.Closer, error) {
	client, closer, err := open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if opts.ReadOnly {
		client = ReadOnly{Client: client}
	}
	return client, closer, nil
}

func open(ctx context.Context, opts Options) (Client, io.Closer, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), nopCloser{}, nil
	case DriverSQLite:
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("sqlite driver requires a path")
		}
		s, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case DriverPebble:
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("pebble driver requires a path")
		}
		p, err := OpenPebble(opts.Path, PebbleOptions{Sync: true})
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case DriverPostgres:
		p, err := OpenPostgres(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case DriverS3:
		s, err := OpenS3(ctx, opts.S3)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger driver %q", opts.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
