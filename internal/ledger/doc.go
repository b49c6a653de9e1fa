// Package ledger provides the flat key/value byte store that records and the
// record index live in.
//
// The ledger exposes exactly two primitives:
//
//   - Get(key) returns the stored bytes, or empty bytes if the key is absent
//   - Set(key, value) overwrites the stored bytes
//
// There is no listing, no transaction, no compare-and-swap and no delete.
// Everything above this package must be built from those two calls.
//
// # Backends
//
//   - Memory: concurrent in-process map, used by tests and the scenario harness
//   - SQLite: single entries table, WAL mode
//   - Pebble: embedded LSM key/value store
//   - Postgres: entries table via pgx
//   - S3: one object per key in a single bucket
//
// All backends return *Error for rejected or failed writes and transport
// failures. Absence is never an error.
package ledger
