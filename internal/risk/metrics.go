package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TriggersTotal counts kill switch activations, manual or automatic.
	TriggersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "completeset_risk_kill_switch_triggers_total",
		Help: "Total number of kill switch activations",
	})
)
