package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	messagesSentTotal     *prometheus.CounterVec
	pushesDispatchedTotal *prometheus.CounterVec
	pushTokensPruned      prometheus.Counter
	realtimeClientsActive prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of messages persisted, labelled by kind.",
		}, []string{"kind"})

		pushesDispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_pushes_dispatched_total",
			Help: "Total number of push notification batches, labelled by outcome.",
		}, []string{"outcome"})

		pushTokensPruned = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_push_tokens_pruned_total",
			Help: "Total number of dead device tokens removed from user records.",
		})

		realtimeClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_realtime_clients_active",
			Help: "Number of websocket clients currently connected.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			messagesSentTotal,
			pushesDispatchedTotal,
			pushTokensPruned,
			realtimeClientsActive,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// MessagesSent exposes the counter for persisted messages.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// PushesDispatched exposes the counter for push batches.
func PushesDispatched() *prometheus.CounterVec {
	RegisterMetrics()
	return pushesDispatchedTotal
}

// PushTokensPruned exposes the counter for removed device tokens.
func PushTokensPruned() prometheus.Counter {
	RegisterMetrics()
	return pushTokensPruned
}

// RealtimeClientsActive exposes the gauge for connected websocket clients.
func RealtimeClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return realtimeClientsActive
}
