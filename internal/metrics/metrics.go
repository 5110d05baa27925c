// Package metrics provides Prometheus instrumentation for dispatch, routing
// and failure classification.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests and library use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scalr"

// Dispatch outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeUnrecognized = "unrecognized"
	OutcomeTransport    = "transport"
	OutcomeMalformed    = "malformed"
	OutcomeRemote       = "remote"
)

// UnrecognizedAction is the "action" label for names outside the catalog,
// which keeps caller-supplied strings out of the label set.
const UnrecognizedAction = "unrecognized"

// Routing results used as the "result" label.
const (
	RouteDelivered = "delivered"
	RouteDropped   = "dropped"
)

// Metrics holds all collectors.
type Metrics struct {
	// Requests counts dispatch calls by action and outcome.
	Requests *prometheus.CounterVec

	// RequestDuration measures dispatch latency by action, including parsing.
	RequestDuration *prometheus.HistogramVec

	// Routed counts log entries routed to sinks by result (delivered, dropped).
	Routed *prometheus.CounterVec

	// Failures counts classified failures by category.
	Failures *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Total dispatched actions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "request_duration_seconds",
				Help:      "Dispatch latency in seconds, including response parsing",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"action"},
		),
		Routed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sink",
				Name:      "routed_entries_total",
				Help:      "Log entries routed to sinks by result",
			},
			[]string{"result"},
		),
		Failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "failure",
				Name:      "classified_total",
				Help:      "Classified failures by category",
			},
			[]string{"category"},
		),
	}
}

// ObserveRequest records one dispatch.
func (m *Metrics) ObserveRequest(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(action, outcome).Inc()
	m.RequestDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveRoute records one routing decision.
func (m *Metrics) ObserveRoute(delivered bool) {
	if m == nil {
		return
	}
	result := RouteDropped
	if delivered {
		result = RouteDelivered
	}
	m.Routed.WithLabelValues(result).Inc()
}

// ObserveFailure records one classified failure category.
func (m *Metrics) ObserveFailure(category string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(category).Inc()
}
