package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/record"
	"github.com/roach88/ledgerflow/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (unauthorized, not found, scenario failed, etc.)
	ExitCommandError = 2 // Command error (bad config, ledger unreachable, etc.)
)

// Error codes reported in CLI responses. Workflow errors report their own
// codes (UNAUTHORIZED, ALREADY_TERMINAL, COMPUTE_FAILED).
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E002" // Record not found
	ErrCodeDecode   = "E003" // Stored record is malformed
	ErrCodeLedger   = "E004" // Ledger rejected the call or is unreachable
	ErrCodeUsage    = "E005" // Invalid arguments
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode maps a domain error to a response code.
func errorCode(err error) string {
	var we *engine.WorkflowError
	switch {
	case errors.As(err, &we):
		return string(we.Code)
	case store.IsNotFound(err):
		return ErrCodeNotFound
	case record.IsDecodeError(err):
		return ErrCodeDecode
	case ledger.IsLedgerError(err):
		return ErrCodeLedger
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "UNAUTHORIZED", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// RecordView is the CLI rendering of a record. Byte fields are base64 in
// JSON.
type RecordView struct {
	ID        string   `json:"id"`
	Owner     string   `json:"owner"`
	Status    string   `json:"status"`
	CreatedAt int64    `json:"created_at"`
	Payload   []byte   `json:"payload"`
	Artifacts [][]byte `json:"artifacts"`
}

// NewRecordView converts a record for output.
func NewRecordView(r record.Record) RecordView {
	artifacts := r.Artifacts
	if artifacts == nil {
		artifacts = [][]byte{}
	}
	return RecordView{
		ID:        r.ID,
		Owner:     r.Owner,
		Status:    r.Status.String(),
		CreatedAt: r.CreatedAt,
		Payload:   r.Payload,
		Artifacts: artifacts,
	}
}

// String renders one line: id, status, owner, creation time, artifact count.
func (v RecordView) String() string {
	created := time.Unix(v.CreatedAt, 0).UTC().Format(time.RFC3339)
	return fmt.Sprintf("%s  %-10s  %s  %s  artifacts=%d", v.ID, v.Status, v.Owner, created, len(v.Artifacts))
}

// RecordList renders as one line per record in text mode.
type RecordList []RecordView

// String joins the records one per line.
func (l RecordList) String() string {
	if len(l) == 0 {
		return "No records."
	}
	lines := make([]string, len(l))
	for i, v := range l {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}
