package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsTracked tracks the number of markets currently registered.
	MarketsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "completeset_orderbook_markets_tracked",
		Help: "Number of markets tracked in memory",
	})

	// UpdatesTotal tracks applied book updates.
	UpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "completeset_orderbook_updates_total",
		Help: "Total number of order book updates applied",
	})

	// UpdatesDroppedTotal tracks updates dropped, labeled by reason.
	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completeset_orderbook_updates_dropped_total",
			Help: "Total number of order book updates dropped",
		},
		[]string{"reason"},
	)

	// LockContentionDuration tracks time spent waiting for the book mutex.
	LockContentionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "completeset_orderbook_lock_contention_seconds",
		Help:    "Time waiting to acquire the order book mutex",
		Buckets: []float64{0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
)
