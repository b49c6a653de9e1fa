// Package compute defines the backend that turns an encrypted payload into
// derived artifacts.
//
// The backend is opaque to the workflow: it receives the payload, may take
// a long time, and either returns the artifacts or fails. Failures are
// terminal for the record being processed; nothing in this package retries.
package compute

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Result holds the artifacts produced by a successful run.
type Result struct {
	Artifacts [][]byte
}

// Backend runs the confidential computation.
type Backend interface {
	Run(ctx context.Context, payload []byte) (Result, error)
}

// Error reports a failed computation.
type Error struct {
	// Backend names the backend that failed.
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("compute %s: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsComputeError returns true if err is or wraps a compute *Error.
func IsComputeError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Func adapts a function to Backend. Errors that are not already a compute
// *Error are wrapped as one.
type Func func(ctx context.Context, payload []byte) (Result, error)

// Run calls f.
func (f Func) Run(ctx context.Context, payload []byte) (Result, error) {
	res, err := f(ctx, payload)
	if err != nil && !IsComputeError(err) {
		return Result{}, &Error{Backend: "func", Err: err}
	}
	return res, err
}

// Failing is a backend that always fails with Reason.
type Failing struct {
	Reason string
}

// Run returns a compute *Error.
func (f Failing) Run(context.Context, []byte) (Result, error) {
	reason := f.Reason
	if reason == "" {
		reason = "computation failed"
	}
	return Result{}, &Error{Backend: "failing", Err: errors.New(reason)}
}

// Scripted returns a fixed sequence of outcomes, one per call. Calls past
// the end of the script fail. Safe for concurrent use.
type Scripted struct {
	mu       sync.Mutex
	outcomes []Outcome
	calls    int
}

// Outcome is one scripted backend response.
type Outcome struct {
	Artifacts [][]byte
	Err       error
}

// NewScripted creates a backend that replays outcomes in order.
func NewScripted(outcomes ...Outcome) *Scripted {
	return &Scripted{outcomes: outcomes}
}

// Run returns the next scripted outcome.
func (s *Scripted) Run(ctx context.Context, _ []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Backend: "scripted", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls >= len(s.outcomes) {
		s.calls++
		return Result{}, &Error{Backend: "scripted", Err: errors.New("script exhausted")}
	}
	o := s.outcomes[s.calls]
	s.calls++
	if o.Err != nil {
		if IsComputeError(o.Err) {
			return Result{}, o.Err
		}
		return Result{}, &Error{Backend: "scripted", Err: o.Err}
	}
	return Result{Artifacts: o.Artifacts}, nil
}

// Calls returns how many times Run was invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
