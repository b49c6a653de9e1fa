// Package store implements the record store over a flat ledger.
//
// The store composes three pieces:
//   - record codec: bytes <-> record.Record
//   - index.Manager: discovery of record ids
//   - ledger.Client: byte I/O
//
// # Ledger Layout
//
//	analyses:index     JSON array of every record id (see package index)
//	analysis:<id>      encoded record (see package record)
//
// # Critical Patterns
//
// Write ordering on Create:
//   - The record is written first and registered in the index second
//   - A crash between the two leaves an orphan record: intact and fetchable
//     by id, but absent from listings. That is lost work, not corruption,
//     because the record entry is authoritative and the index is only a
//     discovery aid
//
// Listing availability:
//   - An undecodable index entry lists as empty
//   - Indexed ids whose fetch or decode fails are skipped and logged
//   - Partial results are preferred to failing the whole listing
//
// Deterministic ordering:
//   - List returns records by created_at descending, ties by id ascending
//
// Concurrency:
//   - Update is fetch, mutate, write with no version token. Concurrent
//     updates to the same record are last-writer-wins, the same lost-update
//     race as index registration. Nothing here fakes atomicity the ledger
//     cannot provide
package store
