package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WriteErrorsTotal tracks async write failures.
	WriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "completeset_ledger_write_errors_total",
		Help: "Total number of ledger async write failures",
	})

	// WritesDroppedTotal tracks async writes dropped due to a full queue.
	WritesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "completeset_ledger_writes_dropped_total",
		Help: "Total number of ledger writes dropped because the queue was full",
	})
)
