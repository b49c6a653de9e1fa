package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/ledgerflow/internal/compute"
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/record"
	"github.com/roach88/ledgerflow/internal/store"
	"github.com/roach88/ledgerflow/internal/testutil"
)

// Error codes reported in the trace for non-workflow failures.
const (
	CodeNotFound = "NOT_FOUND"
	CodeOther    = "ERROR"
)

// corruptBytes is written by the corrupt action.
var corruptBytes = []byte("{not a record")

// Harness executes one scenario.
type Harness struct {
	ledger *ledger.Memory
	engine *engine.Engine
	clock  *stepClock

	// outcome is the compute outcome for the advance in progress.
	outcome *ComputeOutcome
}

// stepClock returns a pinned time when a step sets one, otherwise the
// deterministic clock.
type stepClock struct {
	pinned   int64
	fallback *testutil.DeterministicClock
}

func (c *stepClock) Now() time.Time {
	if c.pinned != 0 {
		return time.Unix(c.pinned, 0).UTC()
	}
	return c.fallback.Now()
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory ledger with sequential ids and a
// deterministic clock. A non-nil error means the harness itself could not
// run; expectation mismatches are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h := newHarness()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sr, err := h.execute(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		result.Trace = append(result.Trace, sr)
		checkExpect(result, sr, step.Expect)
	}

	recs, err := h.engine.Store().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	for _, rec := range recs {
		result.Listing = append(result.Listing, listed(rec))
	}
	if scenario.Listing != nil {
		checkListing(result, scenario.Listing)
	}

	return result, nil
}

func newHarness() *Harness {
	// Suppress logs in scenarios
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		ledger: ledger.NewMemory(),
		clock:  &stepClock{fallback: testutil.NewDeterministicClock()},
	}
	st := store.New(h.ledger,
		store.WithIDGenerator(testutil.NewSequentialIDs("rec")),
		store.WithClock(h.clock),
		store.WithLogger(logger),
	)
	h.engine = engine.New(st, compute.Func(h.compute), engine.WithLogger(logger))
	return h
}

// compute plays the scripted outcome of the current step.
func (h *Harness) compute(ctx context.Context, payload []byte) (compute.Result, error) {
	o := h.outcome
	if o == nil {
		return compute.Placeholder{}.Run(ctx, payload)
	}
	if o.Error != "" {
		return compute.Result{}, &compute.Error{Backend: "scenario", Err: errors.New(o.Error)}
	}
	artifacts := make([][]byte, len(o.Artifacts))
	for i, a := range o.Artifacts {
		artifacts[i] = []byte(a)
	}
	return compute.Result{Artifacts: artifacts}, nil
}

func (h *Harness) execute(ctx context.Context, n int, step Step) (StepResult, error) {
	sr := StepResult{Step: n, Action: step.Action, Caller: step.Caller, ID: step.Record}

	switch step.Action {
	case ActionSubmit:
		h.clock.pinned = step.CreatedAt
		rec, err := h.engine.Submit(ctx, step.Caller, []byte(step.Payload))
		h.clock.pinned = 0
		fill(&sr, rec, err)

	case ActionAdvance:
		h.outcome = step.Compute
		rec, err := h.engine.Advance(ctx, step.Caller, step.Record)
		h.outcome = nil
		fill(&sr, rec, err)

	case ActionDrop:
		h.ledger.Delete(store.RecordKey(step.Record))

	case ActionCorrupt:
		if err := h.ledger.Set(ctx, store.RecordKey(step.Record), corruptBytes); err != nil {
			return sr, err
		}

	default:
		return sr, fmt.Errorf("unknown action %q", step.Action)
	}
	return sr, nil
}

func fill(sr *StepResult, rec record.Record, err error) {
	if rec.ID != "" {
		sr.ID = rec.ID
		sr.Status = rec.Status.String()
		sr.Artifacts = len(rec.Artifacts)
	}
	if err != nil {
		sr.Error = errorCode(err)
	}
}

func errorCode(err error) string {
	var we *engine.WorkflowError
	switch {
	case errors.As(err, &we):
		return string(we.Code)
	case store.IsNotFound(err):
		return CodeNotFound
	default:
		return CodeOther
	}
}

func listed(rec record.Record) ListedRecord {
	lr := ListedRecord{
		ID:        rec.ID,
		Owner:     rec.Owner,
		Status:    rec.Status.String(),
		CreatedAt: rec.CreatedAt,
	}
	for _, a := range rec.Artifacts {
		lr.Artifacts = append(lr.Artifacts, string(a))
	}
	return lr
}

func checkExpect(result *Result, sr StepResult, want *Expect) {
	if want == nil {
		if sr.Error != "" {
			result.AddError(fmt.Sprintf("step %d: unexpected error %s", sr.Step, sr.Error))
		}
		return
	}
	if want.Error != sr.Error {
		result.AddError(fmt.Sprintf("step %d: expected error %q, got %q", sr.Step, want.Error, sr.Error))
	}
	if want.Status != "" && want.Status != sr.Status {
		result.AddError(fmt.Sprintf("step %d: expected status %s, got %s", sr.Step, want.Status, sr.Status))
	}
	if want.Artifacts != nil && *want.Artifacts != sr.Artifacts {
		result.AddError(fmt.Sprintf("step %d: expected %d artifacts, got %d", sr.Step, *want.Artifacts, sr.Artifacts))
	}
}

func checkListing(result *Result, want []ListingEntry) {
	if len(want) != len(result.Listing) {
		result.AddError(fmt.Sprintf("listing: expected %d records, got %d", len(want), len(result.Listing)))
		return
	}
	for i, entry := range want {
		got := result.Listing[i]
		if entry.ID != got.ID {
			result.AddError(fmt.Sprintf("listing[%d]: expected id %s, got %s", i, entry.ID, got.ID))
		}
		if entry.Status != "" && entry.Status != got.Status {
			result.AddError(fmt.Sprintf("listing[%d]: expected status %s, got %s", i, entry.Status, got.Status))
		}
	}
}
