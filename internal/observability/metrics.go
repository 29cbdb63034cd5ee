// README: Prometheus metrics for HTTP traffic, ride matching and event delivery.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campuspool"

var (
	RoutesPublished = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "routes_published_total", Help: "Routes published"})
	RoutesCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "routes_cancelled_total", Help: "Routes deactivated by their driver"})

	RequestDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "request_decisions_total", Help: "Ride request outcomes"},
		[]string{"status", "reason"},
	)
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "requests_created_total", Help: "Ride requests created"})

	SubscriptionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "subscriptions_created_total", Help: "Subscriptions bought per tier"},
		[]string{"tier"},
	)
	RideCreditsUsed = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "ride_credits_used_total", Help: "Accepted rides paid with a subscription credit"})

	BroadcastsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "broadcasts_created_total", Help: "Departure broadcasts created"})
	BroadcastsSwept   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "broadcasts_swept_total", Help: "Expired broadcasts removed by the sweeper"})

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_delivered_total", Help: "Events delivered per sink"},
		[]string{"sink", "result"},
	)
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "events_dropped_total", Help: "Events dropped because the queue was full"})
	WSClients     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ws_clients", Help: "Connected websocket clients"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
