// Package metrics exposes ingestion counters on a private Prometheus
// registry, served by the HTTP API at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles all bidwatch metrics.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal   prometheus.Counter
	RunFailures prometheus.Counter
	Fetched     prometheus.Counter
	Eligible    prometheus.Counter
	Inserted    prometheus.Counter
	Duplicates  prometheus.Counter
	LastRunUnix prometheus.Gauge
}

// NewRegistry creates and registers all metrics.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "bidwatch_runs_total"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "bidwatch_run_failures_total"})
	fetched := prometheus.NewCounter(prometheus.CounterOpts{Name: "bidwatch_fetched_total"})
	eligible := prometheus.NewCounter(prometheus.CounterOpts{Name: "bidwatch_eligible_total"})
	inserted := prometheus.NewCounter(prometheus.CounterOpts{Name: "bidwatch_inserted_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "bidwatch_duplicates_total"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{Name: "bidwatch_last_run_timestamp_seconds"})

	r.MustRegister(runs, failures, fetched, eligible, inserted, duplicates, lastRun)

	return &Registry{
		reg:         r,
		RunsTotal:   runs,
		RunFailures: failures,
		Fetched:     fetched,
		Eligible:    eligible,
		Inserted:    inserted,
		Duplicates:  duplicates,
		LastRunUnix: lastRun,
	}
}

// Handler serves the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
