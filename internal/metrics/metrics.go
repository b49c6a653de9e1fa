// Package metrics defines the Prometheus instruments shared by the record
// store and the workflow engine.
//
// All methods are nil-safe: a nil *Metrics records nothing, so components
// can be constructed without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledgerflow"

// Metrics holds the instruments. Create with New and register with Register.
type Metrics struct {
	StoreOps          *prometheus.CounterVec
	ListSkipped       *prometheus.CounterVec
	DecodeCache       *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	ComputeDuration   *prometheus.HistogramVec
	IndexRegistration *prometheus.CounterVec
}

// New creates unregistered instruments.
func New() *Metrics {
	return &Metrics{
		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Record store operations by operation and result.",
		}, []string{"op", "result"}),
		ListSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "list_skipped_total",
			Help:      "Indexed ids omitted from a listing, by reason.",
		}, []string{"reason"}),
		DecodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "decode_cache_total",
			Help:      "Decode cache lookups by result.",
		}, []string{"result"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "transitions_total",
			Help:      "Persisted workflow transitions by target status.",
		}, []string{"status"}),
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "compute_duration_seconds",
			Help:      "Compute backend wall-clock time by outcome.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"outcome"}),
		IndexRegistration: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "registrations_total",
			Help:      "Index registrations by result.",
		}, []string{"result"}),
	}
}

// Register adds every instrument to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.StoreOps, m.ListSkipped, m.DecodeCache, m.Transitions, m.ComputeDuration, m.IndexRegistration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveOp counts one store operation.
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	m.StoreOps.WithLabelValues(op, result(err)).Inc()
}

// Skipped counts one id omitted from a listing.
func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.ListSkipped.WithLabelValues(reason).Inc()
}

// CacheLookup counts a decode cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.DecodeCache.WithLabelValues(label).Inc()
}

// Transition counts a persisted status transition.
func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

// ComputeDone records one backend invocation.
func (m *Metrics) ComputeDone(start time.Time, err error) {
	if m == nil {
		return
	}
	m.ComputeDuration.WithLabelValues(result(err)).Observe(time.Since(start).Seconds())
}

// Registered counts one index registration attempt.
func (m *Metrics) Registered(err error) {
	if m == nil {
		return
	}
	m.IndexRegistration.WithLabelValues(result(err)).Inc()
}
