// Package instrument decorates a record store with Prometheus metrics.
package instrument

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"healthtrack/internal/domain"
)

// Metrics holds the store collectors.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthtrack",
			Subsystem: "store",
			Name:      "calls_total",
			Help:      "Record store calls by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthtrack",
			Subsystem: "store",
			Name:      "call_duration_seconds",
			Help:      "Record store call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "healthtrack",
			Subsystem: "store",
			Name:      "last_load_records",
			Help:      "Number of records returned by the most recent successful load.",
		}),
	}
	reg.MustRegister(m.calls, m.duration, m.records)
	return m
}

// Observe records one call outcome.
func (m *Metrics) Observe(operation string, err error, d time.Duration) {
	m.calls.WithLabelValues(operation, result(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrStoreWrite):
		return "write_failed"
	default:
		return "error"
	}
}

// Store wraps a domain.RecordStore and reports every call to Metrics.
type Store struct {
	next    domain.RecordStore
	metrics *Metrics
	now     func() time.Time
}

// Wrap returns next instrumented with m.
func Wrap(next domain.RecordStore, m *Metrics) *Store {
	return &Store{next: next, metrics: m, now: time.Now}
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.metrics.Observe(op, err, s.now().Sub(start))
}

// LoadAll implements domain.RecordStore.
func (s *Store) LoadAll(ctx context.Context, scope domain.Scope) ([]domain.HealthRecord, error) {
	start := s.now()
	recs, err := s.next.LoadAll(ctx, scope)
	s.observe("load", start, err)
	if err == nil {
		s.metrics.records.Set(float64(len(recs)))
	}
	return recs, err
}

// Insert implements domain.RecordStore.
func (s *Store) Insert(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	start := s.now()
	saved, err := s.next.Insert(ctx, rec, scope)
	s.observe("insert", start, err)
	return saved, err
}

// Update implements domain.RecordStore.
func (s *Store) Update(ctx context.Context, id string, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	start := s.now()
	saved, err := s.next.Update(ctx, id, rec, scope)
	s.observe("update", start, err)
	return saved, err
}

// DeleteByID implements domain.RecordStore.
func (s *Store) DeleteByID(ctx context.Context, id string, scope domain.Scope) error {
	start := s.now()
	err := s.next.DeleteByID(ctx, id, scope)
	s.observe("delete", start, err)
	return err
}
