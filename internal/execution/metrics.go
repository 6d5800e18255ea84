package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesTotal counts completed tradesets by mode and outcome.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completeset_execution_trades_total",
			Help: "Total number of complete-set tradesets executed",
		},
		[]string{"mode", "outcome"},
	)

	// ProfitRealizedUSD tracks cumulative realized PnL by mode.
	ProfitRealizedUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completeset_execution_profit_realized_usd",
			Help: "Cumulative realized PnL (hypothetical for paper trading)",
		},
		[]string{"mode"},
	)

	// ExecutionDurationSeconds tracks wall time spent in ExecuteSignal.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "completeset_execution_duration_seconds",
		Help:    "Duration of one signal-to-tradeset execution",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionErrorsByType tracks execution failures by classified cause.
	ExecutionErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completeset_execution_errors_total",
			Help: "Total number of execution errors, classified by cause",
		},
		[]string{"error_type"},
	)

	// StateTransitionsTotal counts every state the execution state
	// machine moves into, by state name.
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completeset_execution_state_transitions_total",
			Help: "Total number of execution state machine transitions, by target state",
		},
		[]string{"state"},
	)
)
