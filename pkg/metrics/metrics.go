// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatdesk_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdesk_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// DispatchDuration tracks calls to the remote chat endpoint.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatdesk_dispatch_duration_seconds",
			Help:    "Remote chat endpoint call duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"kind", "outcome"},
	)

	// StoreOperations tracks key-value store reads and writes.
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdesk_store_operations_total",
			Help: "Key-value store operations",
		},
		[]string{"backend", "key", "op", "status"},
	)

	// StoreCorruptTotal counts stored collections that failed to decode.
	StoreCorruptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdesk_store_corrupt_total",
			Help: "Stored collections replaced by an empty default",
		},
		[]string{"key"},
	)

	// SyncTotal counts synchronizations of the active chat.
	SyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdesk_sync_total",
			Help: "Active chat synchronizations",
		},
		[]string{"result"},
	)

	// MessagesTotal tracks messages appended to chats.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdesk_messages_total",
			Help: "Total messages appended",
		},
		[]string{"role"},
	)

	// SSEConnectionsActive tracks active view stream subscribers.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatdesk_sse_connections_active",
			Help: "Number of active view stream connections",
		},
	)

	// RepliesTotal counts replies produced by the chat backend, by source.
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_replies_total",
			Help: "Replies produced by the chat backend",
		},
		[]string{"source", "type"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordDispatch records a remote chat endpoint call.
func RecordDispatch(kind, outcome string, duration float64) {
	DispatchDuration.WithLabelValues(kind, outcome).Observe(duration)
}

// RecordStore records a store operation.
func RecordStore(backend, key, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(backend, key, op, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
