// Package metrics exposes Prometheus instrumentation for the scheduling
// engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors used across the service layer.
type Metrics struct {
	InstancesGenerated    prometheus.Counter
	InstancesMaterialized prometheus.Counter
	ScheduleWrites        *prometheus.CounterVec
	RollforwardRuns       prometheus.Counter

	registry *prometheus.Registry
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		InstancesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "goalplan_instances_generated_total",
			Help: "Block instances produced by recurrence expansion.",
		}),
		InstancesMaterialized: factory.NewCounter(prometheus.CounterOpts{
			Name: "goalplan_instances_materialized_total",
			Help: "Block instances persisted into schedule documents.",
		}),
		ScheduleWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goalplan_schedule_writes_total",
			Help: "Per-date schedule document writes by outcome.",
		}, []string{"status"}),
		RollforwardRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "goalplan_rollforward_runs_total",
			Help: "Completed rollforward sweeps.",
		}),
		registry: reg,
	}
}

// Handler returns the HTTP handler serving the registry, mounted on the
// Prometheus port.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
