// Package metrics exposes Prometheus instrumentation for the lifecycle core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so tests can wire components without a registry.
type Metrics struct {
	MutationsTotal  *prometheus.CounterVec
	MutationErrors  *prometheus.CounterVec
	VersionsCreated *prometheus.CounterVec
	StageFailures   *prometheus.CounterVec

	EventsPublished *prometheus.CounterVec
	SinkDeliveries  *prometheus.CounterVec
	SinkFailures    *prometheus.CounterVec
}

// New creates and registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blackcms_mutations_total",
				Help: "Total entity mutations by type and operation",
			},
			[]string{"entity_type", "operation"},
		),
		MutationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blackcms_mutation_errors_total",
				Help: "Total failed primary writes",
			},
			[]string{"entity_type", "operation"},
		),
		VersionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blackcms_versions_created_total",
				Help: "Total version snapshots persisted",
			},
			[]string{"entity_type"},
		),
		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blackcms_stage_failures_total",
				Help: "Best-effort stage failures that were logged and swallowed",
			},
			[]string{"stage"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blackcms_events_published_total",
				Help: "Lifecycle events handed to the bus",
			},
			[]string{"event"},
		),
		SinkDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blackcms_sink_deliveries_total",
				Help: "Successful sink deliveries",
			},
			[]string{"sink"},
		),
		SinkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blackcms_sink_failures_total",
				Help: "Sink deliveries that failed after all retries",
			},
			[]string{"sink"},
		),
	}
}

// IncMutation records a completed mutation. Safe on a nil receiver.
func (m *Metrics) IncMutation(entityType, operation string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(entityType, operation).Inc()
}

// IncMutationError records a failed primary write. Safe on a nil receiver.
func (m *Metrics) IncMutationError(entityType, operation string) {
	if m == nil {
		return
	}
	m.MutationErrors.WithLabelValues(entityType, operation).Inc()
}

// IncVersion records a persisted snapshot. Safe on a nil receiver.
func (m *Metrics) IncVersion(entityType string) {
	if m == nil {
		return
	}
	m.VersionsCreated.WithLabelValues(entityType).Inc()
}

// IncStageFailure records a swallowed best-effort failure. Safe on a nil receiver.
func (m *Metrics) IncStageFailure(stage string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}

// IncEventPublished records an event handed to the bus. Safe on a nil receiver.
func (m *Metrics) IncEventPublished(event string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(event).Inc()
}

// IncSinkDelivery records a successful delivery. Safe on a nil receiver.
func (m *Metrics) IncSinkDelivery(sink string) {
	if m == nil {
		return
	}
	m.SinkDeliveries.WithLabelValues(sink).Inc()
}

// IncSinkFailure records a delivery that exhausted its retries. Safe on a nil receiver.
func (m *Metrics) IncSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}
