package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.EngineOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertgraph_engine_operations_total",
			Help: "Total number of graph engine operations executed",
		},
		[]string{"operation", "status"},
	)

	r.EngineOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertgraph_engine_operation_duration_seconds",
			Help:    "Graph engine operation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"operation"},
	)

	r.CorrelationEdgesCreated = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "alertgraph_correlation_edges_created_total",
			Help: "Total CORRELATED_WITH edges created by correlation runs",
		},
	)

	r.SlowQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertgraph_slow_queries_total",
			Help: "Total number of slow engine operations (>1s)",
		},
		[]string{"operation"},
	)

	r.UpstreamRetriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "alertgraph_upstream_retries_total",
			Help: "Total upstream fetches retried after transient failure",
		},
	)

	r.UpstreamFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "alertgraph_upstream_failures_total",
			Help: "Total upstream fetches that failed after the retry",
		},
	)
}
