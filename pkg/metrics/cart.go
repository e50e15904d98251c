package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rehydration outcomes reported by RecordRehydrate.
const (
	RehydrateRestored  = "restored"
	RehydrateEmpty     = "empty"
	RehydrateMalformed = "malformed"
	RehydrateError     = "error"
)

// CartMetrics records cart snapshot persistence.
type CartMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	rehydrate *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_persist_duration_seconds",
		Help:    "Duration of cart snapshot writes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_success_total",
		Help: "Cart snapshots written successfully.",
	}, []string{"backend"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failure_total",
		Help: "Cart snapshot writes that failed.",
	}, []string{"backend"})
	rehydrate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_rehydrate_total",
		Help: "Cart rehydration attempts by outcome.",
	}, []string{"backend", "outcome"})
	reg.MustRegister(duration, success, failure, rehydrate)
	return &CartMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		rehydrate: rehydrate,
	}
}

// ObservePersist records one snapshot write and its result.
func (c *CartMetrics) ObservePersist(backend string, duration time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	backend = normalizeLabel(backend)
	c.duration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		c.failure.WithLabelValues(backend).Inc()
		return
	}
	c.success.WithLabelValues(backend).Inc()
}

// RecordRehydrate counts a load attempt by outcome.
func (c *CartMetrics) RecordRehydrate(backend, outcome string) {
	if c == nil || c.rehydrate == nil {
		return
	}
	c.rehydrate.WithLabelValues(normalizeLabel(backend), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
