package polymarket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersSubmittedTotal counts CLOB order submissions by outcome.
	OrdersSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completeset_polymarket_orders_submitted_total",
			Help: "Total number of orders submitted to the Polymarket CLOB",
		},
		[]string{"outcome"},
	)

	// RESTRequestDurationSeconds tracks CLOB/Gamma REST call latency.
	RESTRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completeset_polymarket_rest_request_duration_seconds",
			Help:    "Latency of Polymarket REST requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// FeedDisconnectsTotal counts WebSocket feed drops.
	FeedDisconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "completeset_polymarket_feed_disconnects_total",
		Help: "Total number of Polymarket WebSocket feed disconnects",
	})
)
