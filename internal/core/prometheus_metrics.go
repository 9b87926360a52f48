package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation metrics through a prometheus
// registry: a duration histogram and an outcome counter per operation, plus
// extraction counters labelled by the strategy the fallback chain settled
// on.
type PrometheusMetricsRecorder struct {
	registry    *prometheus.Registry
	durations   *prometheus.HistogramVec
	results     *prometheus.CounterVec
	extractions *prometheus.CounterVec
	failures    prometheus.Counter
}

// NewPrometheusMetricsRecorder registers the collectors on reg; a nil reg
// gets a private registry, which callers can expose via Registry().
func NewPrometheusMetricsRecorder(reg *prometheus.Registry) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &PrometheusMetricsRecorder{
		registry: reg,
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clonecore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of registry service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clonecore",
			Name:      "operation_results_total",
			Help:      "Outcomes of registry service operations.",
		}, []string{"operation", "status"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clonecore",
			Name:      "extractions_total",
			Help:      "Archive extractions by final strategy.",
		}, []string{"strategy"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clonecore",
			Name:      "extraction_entry_failures_total",
			Help:      "Archive entries that could not be placed.",
		}),
	}
	reg.MustRegister(r.durations, r.results, r.extractions, r.failures)
	return r
}

// Registry returns the registry holding the collectors.
func (r *PrometheusMetricsRecorder) Registry() *prometheus.Registry { return r.registry }

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// ObserveExtraction records the settled strategy and per-entry failure count
// of one extraction. Satisfies the extractor's metrics hook.
func (r *PrometheusMetricsRecorder) ObserveExtraction(strategy string, failures int) {
	r.extractions.WithLabelValues(strategy).Inc()
	if failures > 0 {
		r.failures.Add(float64(failures))
	}
}
