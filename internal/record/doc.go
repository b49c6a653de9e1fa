// Package record defines the analysis record stored in the ledger and the
// codec that maps it to and from the ledger's byte representation.
//
// # Record Lifecycle
//
// A record is created in StatusProcessing and moves exactly once to a
// terminal status:
//
//	Processing ──► Completed   (artifacts attached)
//	     │
//	     └───────► Failed      (no artifacts)
//
// Completed and Failed are terminal. No transition skips Processing and no
// transition leaves a terminal status.
//
// # Wire Format
//
// Records are encoded as a JSON object with keys in sorted order and byte
// fields in standard base64:
//
//	{"created_at":1700000000,"id":"...","owner":"0xA","payload":"AQID","status":"Processing"}
//
// A nil artifact list omits the artifacts key; an empty one is written as
// []. Empty payloads and empty artifacts are legal and encode as "".
//
// Encoding is total and stable: a valid record maps to exactly one byte
// sequence, and Decode(Encode(r)) yields r.
//
// Decoding is strict about required fields (id, owner, created_at, payload).
// The status field alone may be absent; data written before statuses existed
// decodes as StatusProcessing.
package record
