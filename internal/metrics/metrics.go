// Package metrics defines Prometheus metrics for podrestore.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podrestore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podrestore_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestBodyBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podrestore_http_request_body_bytes",
			Help:    "Declared request body size; dominated by archive uploads",
			Buckets: prometheus.ExponentialBuckets(1<<10, 4, 10),
		},
		[]string{"path"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podrestore_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podrestore_imports_total",
			Help: "Archive import runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "podrestore_import_duration_seconds",
			Help:    "Archive import run duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
	)

	RemoteLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podrestore_remote_lookups_total",
			Help: "Remote discovery and fetch calls by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	EdgesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podrestore_edges_created_total",
			Help: "Social-graph edges created by imports",
		},
		[]string{"kind"},
	)

	ItemsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podrestore_items_skipped_total",
			Help: "Archive items skipped because they could not be resolved",
		},
		[]string{"kind"},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "podrestore_audit_queue_depth",
			Help: "Current audit queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "podrestore_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, RequestBodyBytes, ErrorsTotal,
		ImportsTotal, ImportDuration,
		RemoteLookupsTotal, EdgesCreatedTotal, ItemsSkippedTotal,
		AuditQueueDepth, WSConnections,
	)
}
