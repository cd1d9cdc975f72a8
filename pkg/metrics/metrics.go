// Package metrics exposes prometheus instrumentation for the graph engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Engine metrics
	EngineOperationsTotal   *prometheus.CounterVec
	EngineOperationDuration *prometheus.HistogramVec
	CorrelationEdgesCreated prometheus.Counter
	SlowQueries             *prometheus.CounterVec

	// Upstream metrics
	UpstreamRetriesTotal  prometheus.Counter
	UpstreamFailuresTotal prometheus.Counter

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}
	r.initHTTPMetrics()
	r.initEngineMetrics()
	return r
}

// Handler returns an HTTP handler exposing the registry in prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncHTTPRequestsInFlight increments the in-flight request gauge
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight request gauge
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordEngineOperation records one engine operation (expand, correlate,
// lateral_movement) with its outcome and duration.
func (r *Registry) RecordEngineOperation(operation, status string, duration time.Duration) {
	r.EngineOperationsTotal.WithLabelValues(operation, status).Inc()
	r.EngineOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())

	if duration > time.Second {
		r.SlowQueries.WithLabelValues(operation).Inc()
	}
}

// RecordCorrelationEdges records edges created by a correlation run.
func (r *Registry) RecordCorrelationEdges(created int) {
	r.CorrelationEdgesCreated.Add(float64(created))
}

// RecordUpstreamRetry records a retried upstream fetch.
func (r *Registry) RecordUpstreamRetry() {
	r.UpstreamRetriesTotal.Inc()
}

// RecordUpstreamFailure records an upstream fetch that failed after retry.
func (r *Registry) RecordUpstreamFailure() {
	r.UpstreamFailuresTotal.Inc()
}
