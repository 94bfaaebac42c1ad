package analytics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Metrics collects flush statistics. A nil *Metrics records nothing.
type Metrics struct {
	flushesTotal  *prometheus.CounterVec
	eventsFlushed prometheus.Counter
	pendingFlags  prometheus.Gauge
	flushDuration prometheus.Histogram
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		flushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flagsmith",
			Subsystem: "analytics",
			Name:      "flushes_total",
			Help:      "Analytics flush cycles by outcome (success, failed, skipped).",
		}, []string{"outcome"}),
		eventsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flagsmith",
			Subsystem: "analytics",
			Name:      "events_flushed_total",
			Help:      "Flag evaluations acknowledged by the service.",
		}),
		pendingFlags: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flagsmith",
			Subsystem: "analytics",
			Name:      "pending_flags",
			Help:      "Distinct flags with counts awaiting a flush.",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flagsmith",
			Subsystem: "analytics",
			Name:      "flush_duration_seconds",
			Help:      "Duration of analytics pushes in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// Register adds every collector to reg. A nil reg is a no-op.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	var errs []error
	for _, c := range []prometheus.Collector{m.flushesTotal, m.eventsFlushed, m.pendingFlags, m.flushDuration} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FlushesTotal returns the counter for outcome, for tests and dashboards.
func (m *Metrics) FlushesTotal(outcome string) prometheus.Counter {
	return m.flushesTotal.WithLabelValues(outcome)
}

// EventsFlushed returns the acknowledged evaluations counter.
func (m *Metrics) EventsFlushed() prometheus.Counter { return m.eventsFlushed }

// PendingFlags returns the pending flags gauge.
func (m *Metrics) PendingFlags() prometheus.Gauge { return m.pendingFlags }

func (m *Metrics) observe(outcome string, elapsed time.Duration, events, pending int) {
	if m == nil {
		return
	}
	m.flushesTotal.WithLabelValues(outcome).Inc()
	m.pendingFlags.Set(float64(pending))
	if outcome == outcomeSkipped {
		return
	}
	m.flushDuration.Observe(elapsed.Seconds())
	if events > 0 {
		m.eventsFlushed.Add(float64(events))
	}
}
