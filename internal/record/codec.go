package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// wireRecord is the JSON shape stored in the ledger.
// Fields are declared in sorted key order so encoding/json emits sorted keys.
// Pointer fields distinguish "absent" from "zero" during decode. A nil
// artifact list is omitted; an empty one is written as [].
type wireRecord struct {
	Artifacts *[]string `json:"artifacts,omitempty"`
	CreatedAt *int64   `json:"created_at"`
	ID        *string  `json:"id"`
	Owner     *string  `json:"owner"`
	Payload   *string  `json:"payload"`
	Status    *string  `json:"status"`
}

// Encode serializes a record to its ledger byte representation.
// Returns an error if the record violates its invariants; invalid records
// are never written.
func Encode(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	var artifacts *[]string
	if r.Artifacts != nil {
		encoded := make([]string, len(r.Artifacts))
		for i, a := range r.Artifacts {
			encoded[i] = base64.StdEncoding.EncodeToString(a)
		}
		artifacts = &encoded
	}
	payload := base64.StdEncoding.EncodeToString(r.Payload)
	status := string(r.Status)

	w := wireRecord{
		Artifacts: artifacts,
		CreatedAt: &r.CreatedAt,
		ID:        &r.ID,
		Owner:     &r.Owner,
		Payload:   &payload,
		Status:    &status,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	// Encoder adds a trailing newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses ledger bytes into a record.
//
// Returns *DecodeError for malformed bytes, a missing required field
// (id, owner, created_at, payload), an unknown status, or a record that
// violates the data-model invariants. A missing status decodes as
// StatusProcessing.
func Decode(data []byte) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, &DecodeError{Message: "malformed bytes", Err: err}
	}

	if w.ID == nil || *w.ID == "" {
		return Record{}, &DecodeError{Field: "id", Message: "required field missing"}
	}
	if w.Owner == nil || *w.Owner == "" {
		return Record{}, &DecodeError{Field: "owner", Message: "required field missing"}
	}
	if w.CreatedAt == nil {
		return Record{}, &DecodeError{Field: "created_at", Message: "required field missing"}
	}
	if w.Payload == nil {
		return Record{}, &DecodeError{Field: "payload", Message: "required field missing"}
	}

	// An empty payload is present, not missing.
	payload := []byte{}
	if *w.Payload != "" {
		b, err := base64.StdEncoding.DecodeString(*w.Payload)
		if err != nil {
			return Record{}, &DecodeError{Field: "payload", Message: "invalid base64", Err: err}
		}
		payload = b
	}

	// Legacy records predate the status field.
	status := StatusProcessing
	if w.Status != nil {
		var err error
		status, err = ParseStatus(*w.Status)
		if err != nil {
			return Record{}, &DecodeError{Field: "status", Message: "invalid value", Err: err}
		}
	}

	var artifacts [][]byte
	if w.Artifacts != nil {
		artifacts = make([][]byte, len(*w.Artifacts))
		for i, a := range *w.Artifacts {
			b, err := base64.StdEncoding.DecodeString(a)
			if err != nil {
				return Record{}, &DecodeError{Field: fmt.Sprintf("artifacts[%d]", i), Message: "invalid base64", Err: err}
			}
			if b == nil {
				b = []byte{}
			}
			artifacts[i] = b
		}
	}

	r := Record{
		ID:        *w.ID,
		Payload:   payload,
		Artifacts: artifacts,
		CreatedAt: *w.CreatedAt,
		Owner:     *w.Owner,
		Status:    status,
	}
	if err := r.Validate(); err != nil {
		return Record{}, &DecodeError{Message: "invalid record", Err: err}
	}
	return r, nil
}
