package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RideActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sharecycle", Name: "ride_actions_total", Help: "Ride actions attempted, by action and outcome"},
		[]string{"action", "outcome"},
	)
	FleetActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sharecycle", Name: "fleet_actions_total", Help: "Operator fleet actions attempted, by action and outcome"},
		[]string{"action", "outcome"},
	)
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sharecycle", Name: "api_requests_total", Help: "Outbound API requests, by method and outcome"},
		[]string{"method", "outcome"},
	)
	APIRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sharecycle",
		Name:      "api_request_duration_seconds",
		Help:      "Outbound API request latency distribution",
		Buckets:   prometheus.DefBuckets,
	})
	EventsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharecycle", Name: "events_received_total", Help: "Domain events received over the stream"})
	StreamConnected     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "sharecycle", Name: "stream_connected", Help: "Whether the event stream is connected (1) or not (0)"})
	StreamReconnects    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sharecycle", Name: "stream_reconnects_total", Help: "Event stream reconnect attempts"})
)
