package record

import (
	"errors"
	"fmt"
)

// DecodeError reports bytes that do not decode to a valid record.
type DecodeError struct {
	// Field names the offending field, empty when the bytes are not a JSON object.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying parse error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("decode record: %s: %v", msg, e.Err)
	}
	return "decode record: " + msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
