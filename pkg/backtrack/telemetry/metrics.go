package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/operator-framework/backtrack/pkg/backtrack"
)

const namespace = "backtrack"

var _ backtrack.Tracer = &Metrics{}

// Metrics counts search events. Label values are limited to the fixed
// set of event kinds and outcomes.
type Metrics struct {
	events   *prometheus.CounterVec
	searches *prometheus.CounterVec
	residual prometheus.Histogram
}

// NewMetrics registers the search collectors on reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Search steps by event kind.",
			},
			[]string{"kind"},
		),
		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Completed searches by outcome.",
			},
			[]string{"outcome"},
		),
		residual: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_residual_goals",
				Help:      "Goals left unresolved by successful searches.",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
			},
		),
	}
	for _, kind := range backtrack.EventKinds() {
		m.events.WithLabelValues(kind.String())
	}
	m.searches.WithLabelValues("success")
	m.searches.WithLabelValues("failure")
	return m
}

func (m *Metrics) Trace(_ context.Context, e backtrack.Event) {
	m.events.WithLabelValues(e.Kind.String()).Inc()
	if e.Kind != backtrack.Finished {
		return
	}
	if e.Err != nil {
		m.searches.WithLabelValues("failure").Inc()
		return
	}
	m.searches.WithLabelValues("success").Inc()
	m.residual.Observe(float64(e.Goals))
}

// Events returns the counter for one event kind.
func (m *Metrics) Events(kind backtrack.EventKind) prometheus.Counter {
	return m.events.WithLabelValues(kind.String())
}

// Searches returns the counter for "success" or "failure".
func (m *Metrics) Searches(outcome string) prometheus.Counter {
	return m.searches.WithLabelValues(outcome)
}
