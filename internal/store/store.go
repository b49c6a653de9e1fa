package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ledgerflow/internal/index"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/metrics"
	"github.com/roach88/ledgerflow/internal/record"
)

// RecordKeyPrefix prefixes every per-record ledger key.
const RecordKeyPrefix = "analysis:"

// RecordKey returns the ledger key holding the record with the given id.
func RecordKey(id string) string {
	return RecordKeyPrefix + id
}

// NormalizeOwner returns the canonical form of an owner identity (NFC).
// Identities that render identically compare equal after normalization.
func NormalizeOwner(owner string) string {
	return norm.NFC.String(owner)
}

// Mutator changes a record in place. It may only change Status and
// Artifacts; Update rejects any other change.
type Mutator func(r *record.Record) error

// Store provides create/get/list/update over records kept in a ledger.
type Store struct {
	ledger  ledger.Client
	index   *index.Manager
	ids     IDGenerator
	clock   Clock
	cache   *decodeCache
	metrics *metrics.Metrics
	logger  *slog.Logger

	cacheSize int
	indexKey  string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the id generator (default UUIDv7Generator).
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithClock overrides the creation clock (default SystemClock).
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLogger sets the logger for soft errors (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithCacheSize sets the decode cache capacity. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(s *Store) {
		s.cacheSize = n
	}
}

// WithIndexKey overrides the reserved index key (default index.DefaultKey).
func WithIndexKey(key string) Option {
	return func(s *Store) {
		s.indexKey = key
	}
}

// New creates a Store over the given ledger.
func New(l ledger.Client, opts ...Option) *Store {
	s := &Store{
		ledger:    l,
		ids:       UUIDv7Generator{},
		clock:     SystemClock{},
		cacheSize: DefaultCacheSize,
		indexKey:  index.DefaultKey,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.index = index.NewWithKey(l, s.indexKey)
	s.cache = newDecodeCache(s.cacheSize)
	return s
}

// Create allocates a new record in StatusProcessing and persists it.
//
// Write order:
//  1. Write the encoded record under RecordKey(id)
//  2. Register id in the index
//
// If step 2 fails the record already exists; Create returns an
// *OrphanError carrying the id.
func (s *Store) Create(ctx context.Context, owner string, payload []byte) (record.Record, error) {
	rec, err := s.create(ctx, owner, payload)
	s.metrics.ObserveOp("create", err)
	return rec, err
}

func (s *Store) create(ctx context.Context, owner string, payload []byte) (record.Record, error) {
	rec := record.Record{
		ID:        s.ids.Generate(),
		Payload:   append([]byte{}, payload...),
		CreatedAt: s.clock.Now().Unix(),
		Owner:     NormalizeOwner(owner),
		Status:    record.StatusProcessing,
	}

	data, err := record.Encode(rec)
	if err != nil {
		return record.Record{}, fmt.Errorf("create: %w", err)
	}

	key := RecordKey(rec.ID)
	existing, err := s.ledger.Get(ctx, key)
	if err != nil {
		return record.Record{}, fmt.Errorf("create: %w", err)
	}
	if len(existing) > 0 {
		return record.Record{}, fmt.Errorf("create %s: %w", rec.ID, ErrIDCollision)
	}

	if err := s.ledger.Set(ctx, key, data); err != nil {
		return record.Record{}, fmt.Errorf("create: %w", err)
	}

	err = s.index.RegisterKey(ctx, rec.ID)
	s.metrics.Registered(err)
	if err != nil {
		s.logger.Error("record written but not indexed",
			"id", rec.ID,
			"error", err,
		)
		return record.Record{}, &OrphanError{ID: rec.ID, Err: err}
	}

	s.logger.Debug("record created",
		"id", rec.ID,
		"owner", rec.Owner,
		"created_at", rec.CreatedAt,
	)
	return rec, nil
}

// Get fetches and decodes one record.
// Returns ErrNotFound if the ledger holds no bytes for id, or
// *record.DecodeError if the bytes are malformed.
func (s *Store) Get(ctx context.Context, id string) (record.Record, error) {
	rec, err := s.get(ctx, id)
	s.metrics.ObserveOp("get", err)
	return rec, err
}

func (s *Store) get(ctx context.Context, id string) (record.Record, error) {
	data, err := s.ledger.Get(ctx, RecordKey(id))
	if err != nil {
		return record.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	if len(data) == 0 {
		return record.Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}

	if rec, ok := s.cache.get(data); ok {
		s.metrics.CacheLookup(true)
		return rec, nil
	}
	if s.cache != nil {
		s.metrics.CacheLookup(false)
	}

	rec, err := record.Decode(data)
	if err != nil {
		return record.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	if rec.ID != id {
		return record.Record{}, fmt.Errorf("get %s: %w", id, &record.DecodeError{
			Field:   "id",
			Message: fmt.Sprintf("stored record has id %q", rec.ID),
		})
	}

	s.cache.put(data, rec)
	return rec, nil
}

// List returns every discoverable record, newest first.
//
// Availability over completeness:
//   - an undecodable index lists as empty (logged)
//   - an indexed id that fails to fetch or decode is skipped (logged)
//
// Ledger failures reading the index itself, and context cancellation, are
// returned as errors.
//
// Order: created_at descending, ties broken by id ascending.
func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	recs, err := s.list(ctx)
	s.metrics.ObserveOp("list", err)
	return recs, err
}

func (s *Store) list(ctx context.Context) ([]record.Record, error) {
	ids, err := s.index.ListKeys(ctx)
	if err != nil {
		if index.IsIndexError(err) {
			s.logger.Warn("index unreadable, listing as empty", "error", err)
			s.metrics.Skipped("index")
			return []record.Record{}, nil
		}
		return nil, fmt.Errorf("list: %w", err)
	}

	recs := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}

		rec, err := s.get(ctx, id)
		if err != nil {
			reason := skipReason(err)
			s.logger.Warn("skipping indexed record",
				"id", id,
				"reason", reason,
				"error", err,
			)
			s.metrics.Skipped(reason)
			continue
		}
		recs = append(recs, rec)
	}

	SortNewestFirst(recs)
	return recs, nil
}

func skipReason(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case record.IsDecodeError(err):
		return "decode"
	default:
		return "fetch"
	}
}

// SortNewestFirst orders records by CreatedAt descending, then ID ascending.
func SortNewestFirst(recs []record.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedAt != recs[j].CreatedAt {
			return recs[i].CreatedAt > recs[j].CreatedAt
		}
		return recs[i].ID < recs[j].ID
	})
}

// Update fetches a record, applies mutate to a copy, checks the result is a
// legal successor and writes it back.
//
// Returns *UpdateError if the mutator fails or produces an illegal record.
// No version token is used: concurrent updates to one record are
// last-writer-wins.
func (s *Store) Update(ctx context.Context, id string, mutate Mutator) (record.Record, error) {
	rec, err := s.update(ctx, id, mutate)
	s.metrics.ObserveOp("update", err)
	return rec, err
}

func (s *Store) update(ctx context.Context, id string, mutate Mutator) (record.Record, error) {
	cur, err := s.get(ctx, id)
	if err != nil {
		return record.Record{}, err
	}

	next := cur.Clone()
	if err := mutate(&next); err != nil {
		return record.Record{}, &UpdateError{ID: id, Err: err}
	}
	if err := record.ValidateUpdate(cur, next); err != nil {
		return record.Record{}, &UpdateError{ID: id, Err: err}
	}

	data, err := record.Encode(next)
	if err != nil {
		return record.Record{}, &UpdateError{ID: id, Err: err}
	}
	if err := s.ledger.Set(ctx, RecordKey(id), data); err != nil {
		return record.Record{}, fmt.Errorf("update %s: %w", id, err)
	}

	s.logger.Debug("record updated",
		"id", id,
		"from", cur.Status,
		"to", next.Status,
	)
	return next, nil
}
