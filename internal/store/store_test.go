package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/index"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/metrics"
	"github.com/roach88/ledgerflow/internal/record"
	tu "github.com/roach88/ledgerflow/internal/testutil"
)

// createTestStore creates a store over a fresh in-memory ledger with
// deterministic ids and timestamps.
func createTestStore(t *testing.T, opts ...Option) (*Store, *ledger.Memory) {
	t.Helper()
	mem := ledger.NewMemory()
	base := []Option{
		WithIDGenerator(tu.NewSequentialIDs("rec")),
		WithClock(tu.NewDeterministicClock()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(mem, append(base, opts...)...), mem
}

func TestCreate_InitialState(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	rec, err := s.Create(ctx, "0xA", []byte("ciphertext"))
	require.NoError(t, err)

	assert.Equal(t, "rec-0001", rec.ID)
	assert.Equal(t, "0xA", rec.Owner)
	assert.Equal(t, []byte("ciphertext"), rec.Payload)
	assert.Equal(t, int64(1700000000), rec.CreatedAt)
	assert.Equal(t, record.StatusProcessing, rec.Status)
	assert.Empty(t, rec.Artifacts)
}

func TestCreate_EmptyPayload(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	for _, payload := range [][]byte{nil, {}} {
		rec, err := s.Create(ctx, "0xA", payload)
		require.NoError(t, err)
		assert.Equal(t, []byte{}, rec.Payload)

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	}
}

func TestCreate_WritesRecordThenIndex(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	rec := &recordingLedger{Client: mem}
	s := New(rec, WithIDGenerator(NewFixedGenerator("r1")))

	_, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)

	assert.Equal(t, []string{RecordKey("r1"), index.DefaultKey}, rec.setKeys)

	raw, err := mem.Get(ctx, RecordKey("r1"))
	require.NoError(t, err)
	decoded, err := record.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "r1", decoded.ID)
}

func TestCreate_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	s := New(ledger.NewMemory(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		rec, err := s.Create(ctx, "0xA", []byte{byte(i)})
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 200)
}

func TestCreate_RejectsIDCollision(t *testing.T) {
	ctx := context.Background()
	s := New(ledger.NewMemory(), WithIDGenerator(NewFixedGenerator("same", "same")))

	_, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)

	_, err = s.Create(ctx, "0xB", []byte("q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIDCollision)

	got, err := s.Get(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, "0xA", got.Owner, "existing record must not be overwritten")
}

func TestCreate_InvalidInput(t *testing.T) {
	ctx := context.Background()
	s, mem := createTestStore(t)

	_, err := s.Create(ctx, "", []byte("p"))
	assert.Error(t, err)

	_, err = s.Create(ctx, "0xA", nil)
	assert.Error(t, err)

	assert.Equal(t, 0, mem.Len(), "nothing written for invalid input")
}

func TestCreate_NormalizesOwner(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	// "e" + combining acute accent
	rec, err := s.Create(ctx, "jose\u0301", []byte("p"))
	require.NoError(t, err)
	assert.Equal(t, "jos\u00e9", rec.Owner)
}

func TestCreate_ReadOnlyLedger(t *testing.T) {
	ctx := context.Background()
	s := New(ledger.ReadOnly{Client: ledger.NewMemory()})

	_, err := s.Create(ctx, "0xA", []byte("p"))
	require.Error(t, err)
	assert.True(t, ledger.IsLedgerError(err))
	assert.ErrorIs(t, err, ledger.ErrReadOnly)
}

func TestCreate_IndexFailureLeavesOrphan(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	failing := &failingSetLedger{Client: mem, failKey: index.DefaultKey}
	s := New(failing,
		WithIDGenerator(NewFixedGenerator("orphan")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := s.Create(ctx, "0xA", []byte("p"))
	require.Error(t, err)

	var oe *OrphanError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "orphan", oe.ID)

	// Fetchable by id, invisible to listing.
	rec, err := s.Get(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, record.StatusProcessing, rec.Status)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGet_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGet_DecodeError(t *testing.T) {
	ctx := context.Background()
	s, mem := createTestStore(t)
	require.NoError(t, mem.Set(ctx, RecordKey("bad"), []byte(`{"id":"bad"}`)))

	_, err := s.Get(ctx, "bad")
	require.Error(t, err)
	assert.True(t, record.IsDecodeError(err))
}

func TestGet_IDMismatch(t *testing.T) {
	ctx := context.Background()
	s, mem := createTestStore(t)

	data, err := record.Encode(record.Record{
		ID: "other", Payload: []byte("p"), CreatedAt: 1, Owner: "0xA", Status: record.StatusProcessing,
	})
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, RecordKey("mine"), data))

	_, err = s.Get(ctx, "mine")
	assert.True(t, record.IsDecodeError(err))
}

// TestList_Ordering: created_at [100, 300, 200] lists as [300, 200, 100].
func TestList_Ordering(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t, WithClock(tu.NewScriptedClock(100, 300, 200)))

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "0xA", []byte("p"))
		require.NoError(t, err)
	}

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	var got []int64
	for _, r := range recs {
		got = append(got, r.CreatedAt)
	}
	assert.Equal(t, []int64{300, 200, 100}, got)
}

func TestList_TiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t,
		WithIDGenerator(NewFixedGenerator("c", "a", "b")),
		WithClock(tu.NewScriptedClock(50)),
	)

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "0xA", []byte("p"))
		require.NoError(t, err)
	}

	recs, err := s.List(ctx)
	require.NoError(t, err)

	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestList_EmptyLedger(t *testing.T) {
	s, _ := createTestStore(t)

	recs, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// TestList_PartialIndexResilience: an indexed id with no record is omitted
// without failing the listing.
func TestList_PartialIndexResilience(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	s, mem := createTestStore(t, WithMetrics(m))

	a, err := s.Create(ctx, "0xA", []byte("a"))
	require.NoError(t, err)
	b, err := s.Create(ctx, "0xA", []byte("b"))
	require.NoError(t, err)
	c, err := s.Create(ctx, "0xA", []byte("c"))
	require.NoError(t, err)

	mem.Delete(RecordKey(b.ID))

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, c.ID, recs[0].ID)
	assert.Equal(t, a.ID, recs[1].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListSkipped.WithLabelValues("not_found")))
}

func TestList_SkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	s, mem := createTestStore(t, WithMetrics(m))

	good, err := s.Create(ctx, "0xA", []byte("a"))
	require.NoError(t, err)
	bad, err := s.Create(ctx, "0xA", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, mem.Set(ctx, RecordKey(bad.ID), []byte("{not json")))

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, good.ID, recs[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListSkipped.WithLabelValues("decode")))
}

func TestList_CorruptIndexListsEmpty(t *testing.T) {
	ctx := context.Background()
	s, mem := createTestStore(t)

	_, err := s.Create(ctx, "0xA", []byte("a"))
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, index.DefaultKey, []byte("{{{")))

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestList_IndexFetchFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	s := New(&failingGetLedger{Client: ledger.NewMemory()})

	_, err := s.List(ctx)
	require.Error(t, err)
	assert.True(t, ledger.IsLedgerError(err))
}

func TestList_CancelledContext(t *testing.T) {
	s, _ := createTestStore(t)
	_, err := s.Create(context.Background(), "0xA", []byte("a"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdate_LegalTransition(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)
	rec, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)

	updated, err := s.Update(ctx, rec.ID, func(r *record.Record) error {
		r.Status = record.StatusCompleted
		r.Artifacts = [][]byte{[]byte("d1"), []byte("d2")}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, record.StatusCompleted, updated.Status)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
}

func TestUpdate_RejectsIllegalChanges(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)
	rec, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate Mutator
	}{
		{"artifacts without completion", func(r *record.Record) error {
			r.Artifacts = [][]byte{[]byte("x")}
			return nil
		}},
		{"created_at", func(r *record.Record) error {
			r.CreatedAt = 1
			return nil
		}},
		{"owner", func(r *record.Record) error {
			r.Owner = "0xB"
			return nil
		}},
		{"unknown status", func(r *record.Record) error {
			r.Status = "Paused"
			return nil
		}},
		{"mutator error", func(r *record.Record) error {
			return errors.New("nope")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Update(ctx, rec.ID, tt.mutate)
			require.Error(t, err)

			var ue *UpdateError
			assert.ErrorAs(t, err, &ue)

			got, err := s.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, rec, got, "record must be unchanged")
		})
	}
}

func TestUpdate_NoTransitionOutOfTerminal(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)
	rec, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)

	_, err = s.Update(ctx, rec.ID, func(r *record.Record) error {
		r.Status = record.StatusFailed
		return nil
	})
	require.NoError(t, err)

	for _, to := range []record.Status{record.StatusProcessing, record.StatusCompleted, record.StatusFailed} {
		_, err = s.Update(ctx, rec.ID, func(r *record.Record) error {
			r.Status = to
			return nil
		})
		assert.Error(t, err, "Failed -> %s", to)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.Update(context.Background(), "missing", func(r *record.Record) error { return nil })
	assert.True(t, IsNotFound(err))
}

// TestUpdate_LastWriterWins documents the accepted race on concurrent
// updates to the same record.
func TestUpdate_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)
	rec, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)

	// Writer A completes the record while writer B's mutator is running
	// against the Processing copy it fetched.
	_, err = s.Update(ctx, rec.ID, func(r *record.Record) error {
		_, innerErr := s.Update(ctx, rec.ID, func(inner *record.Record) error {
			inner.Status = record.StatusCompleted
			inner.Artifacts = [][]byte{[]byte("a")}
			return nil
		})
		require.NoError(t, innerErr)

		r.Status = record.StatusFailed
		return nil
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusFailed, got.Status)
}

func TestDecodeCache_HitsOnUnchangedBytes(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	s, _ := createTestStore(t, WithMetrics(m))
	rec, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeCache.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecodeCache.WithLabelValues("hit")))
	assert.Equal(t, 1, s.cache.len())
}

func TestDecodeCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)
	rec, err := s.Create(ctx, "0xA", []byte("payload"))
	require.NoError(t, err)

	first, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	first.Payload[0] = 'X'

	second, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), second.Payload)
}

func TestDecodeCache_Disabled(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t, WithCacheSize(0))
	assert.Nil(t, s.cache)

	rec, err := s.Create(ctx, "0xA", []byte("p"))
	require.NoError(t, err)
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestStore_SQLiteLedger(t *testing.T) {
	ctx := context.Background()
	sq, err := ledger.OpenSQLite(t.TempDir() + "/ledger.db")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	s := New(sq, WithIDGenerator(tu.NewSequentialIDs("sq")), WithClock(tu.NewDeterministicClock()))

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "0xA", []byte(fmt.Sprintf("p%d", i)))
		require.NoError(t, err)
	}

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "sq-0003", recs[0].ID)
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator_Format(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)
	assert.Equal(t, byte('7'), id[14], "version nibble")
}

type recordingLedger struct {
	ledger.Client
	setKeys []string
}

func (r *recordingLedger) Set(ctx context.Context, key string, value []byte) error {
	r.setKeys = append(r.setKeys, key)
	return r.Client.Set(ctx, key, value)
}

type failingSetLedger struct {
	ledger.Client
	failKey string
}

func (f *failingSetLedger) Set(ctx context.Context, key string, value []byte) error {
	if key == f.failKey {
		return &ledger.Error{Op: ledger.OpSet, Key: key, Err: errors.New("user declined signature")}
	}
	return f.Client.Set(ctx, key, value)
}

type failingGetLedger struct {
	ledger.Client
}

func (f *failingGetLedger) Get(_ context.Context, key string) ([]byte, error) {
	return nil, &ledger.Error{Op: ledger.OpGet, Key: key, Err: errors.New("timeout")}
}
