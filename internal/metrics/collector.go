// Package metrics exposes Prometheus instrumentation for the scoring client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fraudwatch"

// backendStatuses lists every value of the backend status gauge.
var backendStatuses = []string{"checking", "awake", "sleeping"}

// Collector holds all metrics for the scoring client.
type Collector struct {
	registry *prometheus.Registry

	// Operation metrics
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec

	// Availability metrics
	backendStatus     *prometheus.GaugeVec
	statusTransitions *prometheus.CounterVec
	probeDuration     prometheus.Histogram
}

// NewCollector creates a collector backed by its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "requests_total",
			Help:      "Total number of scoring operations by outcome",
		}, []string{"operation", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "retries_total",
			Help:      "Total number of retried scoring attempts",
		}, []string{"operation"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "operation_duration_seconds",
			Help:      "Duration of scoring operations including retries",
			Buckets:   []float64{0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 240.0},
		}, []string{"operation"}),

		backendStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "status",
			Help:      "Current backend availability status (1 for the active status)",
		}, []string{"status"}),
		statusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "status_transitions_total",
			Help:      "Total number of backend status changes",
		}, []string{"from", "to"}),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "probe_duration_seconds",
			Help:      "Duration of liveness probes",
			Buckets:   []float64{0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0, 120.0},
		}),
	}

	c.RecordStatus("", "checking")
	return c
}

// RecordOperation records the result and total duration of one scoring operation.
func (c *Collector) RecordOperation(operation, outcome string, d time.Duration) {
	c.requests.WithLabelValues(operation, outcome).Inc()
	c.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRetry records a retried attempt.
func (c *Collector) RecordRetry(operation string) {
	c.retries.WithLabelValues(operation).Inc()
}

// RecordStatus moves the backend status gauge to status. An empty from marks
// the initial value and is not counted as a transition.
func (c *Collector) RecordStatus(from, to string) {
	for _, s := range backendStatuses {
		value := 0.0
		if s == to {
			value = 1
		}
		c.backendStatus.WithLabelValues(s).Set(value)
	}
	if from != "" {
		c.statusTransitions.WithLabelValues(from, to).Inc()
	}
}

// RecordProbe records the duration of a liveness probe.
func (c *Collector) RecordProbe(d time.Duration) {
	c.probeDuration.Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
