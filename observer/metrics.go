package observer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oscied/orchestrator/capacity"
)

// prometheusMetrics mirrors every sample into gauges from
// github.com/prometheus/client_golang, a direct teacher dependency carried
// regardless of the Non-goals in spec §1 (ambient observability is never
// scoped out by a feature Non-goal, per SPEC_FULL.md §4.6).
type prometheusMetrics struct {
	planned    *prometheus.GaugeVec
	unitsByState *prometheus.GaugeVec
	tasksByStatus *prometheus.GaugeVec
}

func newPrometheusMetrics() *prometheusMetrics {
	m := &prometheusMetrics{
		planned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oscied",
			Subsystem: "capacity",
			Name:      "planned_units",
			Help:      "Desired unit count from the event table for this environment/service.",
		}, []string{"environment", "service"}),
		unitsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oscied",
			Subsystem: "capacity",
			Name:      "observed_units",
			Help:      "Observed unit count for this environment/service, by health state.",
		}, []string{"environment", "service", "state"}),
		tasksByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oscied",
			Subsystem: "tasks",
			Name:      "status_count",
			Help:      "Task counter by service kind and status.",
		}, []string{"service", "status"}),
	}
	return m
}

// Registerer registers the three gauge vectors on reg.
func (m *prometheusMetrics) Registerer(reg prometheus.Registerer) {
	reg.MustRegister(m.planned, m.unitsByState, m.tasksByStatus)
}

func (m *prometheusMetrics) record(environment, service string, sample Sample) {
	m.planned.WithLabelValues(environment, service).Set(float64(sample.Planned))
	for _, state := range []capacity.UnitState{capacity.UnitStarted, capacity.UnitPending, capacity.UnitError, capacity.UnitUnknown} {
		m.unitsByState.WithLabelValues(environment, service, string(state)).Set(float64(sample.ByState[state]))
	}
	m.tasksByStatus.WithLabelValues(service, "pending").Set(float64(sample.Tasks.Pending))
	m.tasksByStatus.WithLabelValues(service, "in_progress").Set(float64(sample.Tasks.InProgress))
	m.tasksByStatus.WithLabelValues(service, "success").Set(float64(sample.Tasks.Success))
}

// Registerer exposes the Observer's metrics collectors so cmd/orchestrator
// can wire them onto its HTTP /metrics handler.
func (o *Observer) Registerer(reg prometheus.Registerer) { o.metrics.Registerer(reg) }
