package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ledgerflow/internal/compute"
	"github.com/roach88/ledgerflow/internal/metrics"
	"github.com/roach88/ledgerflow/internal/record"
	"github.com/roach88/ledgerflow/internal/store"
)

// Engine runs the analysis workflow over a record store.
//
// Thread-safety: an Engine holds no mutable state of its own and may be
// shared between goroutines. See the package doc for the races that
// remain at the ledger level.
type Engine struct {
	store   *store.Store
	backend compute.Backend
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger for transitions (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine that persists through s and computes with b.
func New(s *store.Store, b compute.Backend, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		backend: b,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Store returns the underlying record store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Submit creates a new record in Processing for owner.
func (e *Engine) Submit(ctx context.Context, owner string, payload []byte) (record.Record, error) {
	rec, err := e.store.Create(ctx, owner, payload)
	if err != nil {
		return record.Record{}, fmt.Errorf("submit: %w", err)
	}
	e.metrics.Transition(rec.Status.String())
	e.logger.Info("analysis submitted",
		"id", rec.ID,
		"owner", rec.Owner,
		"status", rec.Status,
	)
	return rec, nil
}

// Advance runs the backend for a Processing record and persists the
// outcome.
//
// Errors:
//   - *WorkflowError ErrCodeUnauthorized: caller is not the owner
//   - *WorkflowError ErrCodeAlreadyTerminal: record is Completed or Failed
//   - *WorkflowError ErrCodeComputeFailed: backend failed; the returned
//     record is the persisted Failed record
//   - store/ledger errors otherwise
//
// Owner identities are compared after NFC normalization.
func (e *Engine) Advance(ctx context.Context, caller, id string) (record.Record, error) {
	cur, err := e.store.Get(ctx, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("advance: %w", err)
	}

	if store.NormalizeOwner(caller) != store.NormalizeOwner(cur.Owner) {
		e.logger.Warn("advance rejected",
			"id", id,
			"caller", caller,
			"reason", ErrCodeUnauthorized,
		)
		return record.Record{}, NewUnauthorizedError(id, caller)
	}
	if cur.Status != record.StatusProcessing {
		return record.Record{}, NewAlreadyTerminalError(id, cur.Status)
	}

	start := time.Now()
	res, computeErr := e.backend.Run(ctx, cur.Payload)
	e.metrics.ComputeDone(start, computeErr)

	next, err := e.store.Update(ctx, id, settle(res, computeErr))
	if err != nil {
		return record.Record{}, fmt.Errorf("advance: %w", err)
	}

	e.metrics.Transition(next.Status.String())
	e.logger.Info("analysis advanced",
		"id", id,
		"from", cur.Status,
		"to", next.Status,
		"artifacts", len(next.Artifacts),
		"duration", time.Since(start),
	)

	if computeErr != nil {
		return next, NewComputeFailedError(id, computeErr)
	}
	return next, nil
}

// settle returns the mutator that moves a record to its terminal state.
// The Processing precondition is checked again against the freshly read
// record.
func settle(res compute.Result, computeErr error) store.Mutator {
	return func(r *record.Record) error {
		if r.Status != record.StatusProcessing {
			return NewAlreadyTerminalError(r.ID, r.Status)
		}
		if computeErr != nil {
			r.Status = record.StatusFailed
			r.Artifacts = nil
			return nil
		}
		r.Status = record.StatusCompleted
		r.Artifacts = cloneArtifacts(res.Artifacts)
		return nil
	}
}

func cloneArtifacts(in [][]byte) [][]byte {
	if len(in) == 0 {
		return nil
	}
	out := make([][]byte, len(in))
	for i, a := range in {
		out[i] = append([]byte{}, a...)
	}
	return out
}

// Outcome is the result of advancing one record in a batch.
type Outcome struct {
	ID     string
	Record record.Record
	Err    error
}

// AdvanceAll advances every Processing record owned by caller, oldest
// first, one at a time. Per-record failures are collected in the returned
// outcomes; only listing failures and cancellation abort the batch.
func (e *Engine) AdvanceAll(ctx context.Context, caller string) ([]Outcome, error) {
	recs, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("advance all: %w", err)
	}

	owner := store.NormalizeOwner(caller)
	var outcomes []Outcome
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		if rec.Status != record.StatusProcessing || store.NormalizeOwner(rec.Owner) != owner {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("advance all: %w", err)
		}

		next, err := e.Advance(ctx, caller, rec.ID)
		outcomes = append(outcomes, Outcome{ID: rec.ID, Record: next, Err: err})
	}

	e.logger.Debug("batch advanced", "caller", caller, "count", len(outcomes))
	return outcomes, nil
}
