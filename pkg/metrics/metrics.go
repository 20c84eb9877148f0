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
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// OrdersPlacedTotal tracks committed orders.
	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total orders committed",
		},
		[]string{"source"},
	)

	// OrdersCancelledTotal tracks cancelled orders.
	OrdersCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Total orders cancelled",
		},
	)

	// StockConflictsTotal tracks confirmations rejected for insufficient stock.
	StockConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_conflicts_total",
			Help: "Order confirmations rejected because stock ran out",
		},
	)

	// ResponderDuration tracks responder latency per variant.
	ResponderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "responder_duration_seconds",
			Help:    "Responder call duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider", "status"},
	)

	// ResponderFallbacksTotal tracks generative failures absorbed by the fallback.
	ResponderFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "responder_fallbacks_total",
			Help: "Chat replies served by the fallback responder",
		},
		[]string{"reason"},
	)

	// ChatMessagesTotal tracks chat messages processed.
	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages processed",
		},
		[]string{"intent"},
	)

	// ChatTurnLogErrors tracks failures writing to the persisted turn log.
	ChatTurnLogErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_turn_log_errors_total",
			Help: "Failed writes to the conversation turn log",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordResponder records metrics for a responder call.
func RecordResponder(provider, status string, duration float64) {
	ResponderDuration.WithLabelValues(provider, status).Observe(duration)
}
