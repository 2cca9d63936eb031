// Package metrics exposes Prometheus collectors for digest runs and
// pending-action outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harrisonrobin/agenda/pkg/pending"
)

// Metrics groups the collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	digestRuns     *prometheus.CounterVec
	digestDuration *prometheus.HistogramVec
	actions        *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg, panicking on conflicts.
// Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		digestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agenda",
				Subsystem: "digest",
				Name:      "runs_total",
				Help:      "Digest runs by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		digestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agenda",
				Subsystem: "digest",
				Name:      "run_duration_seconds",
				Help:      "Time spent computing and delivering a digest.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agenda",
				Subsystem: "actions",
				Name:      "transitions_total",
				Help:      "Pending action transitions by kind and result.",
			},
			[]string{"kind", "result"},
		),
	}
	reg.MustRegister(m.digestRuns, m.digestDuration, m.actions)
	return m
}

// ObserveDigest records one digest run.
func (m *Metrics) ObserveDigest(mode, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.digestRuns.WithLabelValues(mode, outcome).Inc()
	m.digestDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveAction records a state machine transition.
func (m *Metrics) ObserveAction(kind pending.Kind, result string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(string(kind), result).Inc()
}
