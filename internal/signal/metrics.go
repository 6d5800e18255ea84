package signal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal tracks every evaluation outcome by decision.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completeset_signal_decisions_total",
			Help: "Total number of signal evaluations by decision",
		},
		[]string{"decision"},
	)

	// EdgeBPS tracks the computed edge, in basis points, for every
	// evaluation that got far enough to compute one.
	EdgeBPS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "completeset_signal_edge_bps",
		Help:    "Computed edge in basis points for evaluations that reached the edge check",
		Buckets: []float64{-500, -100, -50, 0, 50, 100, 200, 500, 1000, 2000},
	})
)
