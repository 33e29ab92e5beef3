// Package metrics exposes the Prometheus instruments the API reports on,
// served at /metrics by the default registry handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daymark_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	BackendOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daymark_backend_op_duration_seconds",
			Help:    "Storage backend read/write duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"backend", "op"},
	)

	MutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daymark_mutation_count",
			Help: "Total number of state mutations applied",
		},
		[]string{"op", "status"}, // op: increment, add_habit, ... status: ok, error
	)

	SessionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daymark_session_count",
			Help: "Total number of sessions issued or revoked",
		},
		[]string{"event"}, // event: issued, refreshed, revoked
	)
)

// RecordHTTPRequestDuration records one served request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordBackendOp records one storage backend round trip.
func RecordBackendOp(backend, op string, duration time.Duration) {
	BackendOpDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// IncrementMutation counts one applied (or failed) mutation.
func IncrementMutation(op, status string) {
	MutationCount.WithLabelValues(op, status).Inc()
}

// IncrementSession counts one session lifecycle event.
func IncrementSession(event string) {
	SessionCount.WithLabelValues(event).Inc()
}
