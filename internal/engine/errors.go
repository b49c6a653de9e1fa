package engine

import (
	"errors"
	"fmt"
)

// WorkflowError is returned when Advance refuses to run.
type WorkflowError struct {
	// Code identifies the error category.
	Code WorkflowErrorCode

	// Message is a human-readable description.
	Message string

	// RecordID identifies the affected record.
	RecordID string

	// Err is the underlying cause (compute failures only).
	Err error
}

// WorkflowErrorCode categorizes workflow errors.
type WorkflowErrorCode string

const (
	// ErrCodeUnauthorized indicates the caller does not own the record.
	ErrCodeUnauthorized WorkflowErrorCode = "UNAUTHORIZED"

	// ErrCodeAlreadyTerminal indicates the record is Completed or Failed.
	ErrCodeAlreadyTerminal WorkflowErrorCode = "ALREADY_TERMINAL"

	// ErrCodeComputeFailed indicates the backend failed and the record was
	// moved to Failed.
	ErrCodeComputeFailed WorkflowErrorCode = "COMPUTE_FAILED"
)

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RecordID != "" {
		msg = fmt.Sprintf("%s (record=%s)", msg, e.RecordID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// IsUnauthorized returns true if the error is an authorization failure.
// Uses errors.As to handle wrapped errors.
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}

// IsAlreadyTerminal returns true if the error rejects a finished record.
func IsAlreadyTerminal(err error) bool {
	return hasCode(err, ErrCodeAlreadyTerminal)
}

// IsComputeFailed returns true if the backend failed during Advance.
// The wrapped *compute.Error is reachable with errors.As.
func IsComputeFailed(err error) bool {
	return hasCode(err, ErrCodeComputeFailed)
}

func hasCode(err error, code WorkflowErrorCode) bool {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

// NewUnauthorizedError creates a WorkflowError for a non-owner caller.
func NewUnauthorizedError(id, caller string) *WorkflowError {
	return &WorkflowError{
		Code:     ErrCodeUnauthorized,
		Message:  fmt.Sprintf("caller %q does not own record", caller),
		RecordID: id,
	}
}

// NewAlreadyTerminalError creates a WorkflowError for a finished record.
func NewAlreadyTerminalError(id string, status fmt.Stringer) *WorkflowError {
	return &WorkflowError{
		Code:     ErrCodeAlreadyTerminal,
		Message:  fmt.Sprintf("record is already %s", status),
		RecordID: id,
	}
}

// NewComputeFailedError wraps a backend failure.
func NewComputeFailedError(id string, err error) *WorkflowError {
	return &WorkflowError{
		Code:     ErrCodeComputeFailed,
		Message:  "computation failed, record marked Failed",
		RecordID: id,
		Err:      err,
	}
}
