package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
//
// Each Metrics owns its registry so several engines (and tests) can run in
// one process without duplicate registration.
type Metrics struct {
	Registry *prometheus.Registry

	invocations *prometheus.CounterVec
	dispatched  *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecraft_invocations_total",
				Help: "Total number of ritual invocations by outcome status",
			},
			[]string{"status"},
		),
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecraft_instructions_dispatched_total",
				Help: "Total number of instructions handled by a bound handler",
			},
			[]string{"category"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecraft_instructions_unbound_total",
				Help: "Total number of instructions skipped because no handler is bound",
			},
			[]string{"category"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codecraft_invocation_duration_seconds",
				Help:    "Duration of ritual invocations",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.Registry.MustRegister(m.invocations, m.dispatched, m.dropped, m.duration)
	return m
}
