package execution

import "testing"

func TestMetricsRegistration(t *testing.T) {
	if TradesTotal == nil {
		t.Error("TradesTotal not registered")
	}
	if ProfitRealizedUSD == nil {
		t.Error("ProfitRealizedUSD not registered")
	}
	if ExecutionDurationSeconds == nil {
		t.Error("ExecutionDurationSeconds not registered")
	}
	if ExecutionErrorsByType == nil {
		t.Error("ExecutionErrorsByType not registered")
	}
	if StateTransitionsTotal == nil {
		t.Error("StateTransitionsTotal not registered")
	}
}

func TestMetricsCounterIncrement(t *testing.T) {
	TradesTotal.WithLabelValues("paper", "success").Inc()
	TradesTotal.WithLabelValues("live", "partial_fill").Inc()
	ProfitRealizedUSD.WithLabelValues("paper").Add(10.5)
	ExecutionErrorsByType.WithLabelValues("order_rejected").Inc()
	StateTransitionsTotal.WithLabelValues("WAITING_FILLS").Inc()
}

func TestMetricsHistogramObserve(t *testing.T) {
	ExecutionDurationSeconds.Observe(0.1)
}
