package signal

import (
	"testing"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testConfig(now time.Time) Config {
	logger, _ := zap.NewDevelopment()
	return Config{
		MinEdge:    decimal.NewFromFloat(0.01),
		CostBuffer: decimal.NewFromFloat(0.005),
		MinDepth:   decimal.NewFromInt(10),
		FeeRate:    decimal.NewFromFloat(0.02),
		Logger:     logger,
		Clock:      func() time.Time { return now },
	}
}

func marketWithQuotes(active bool, yesAsk, yesSize, noAsk, noSize float64) types.MarketBook {
	yp := decimal.NewFromFloat(yesAsk)
	ys := decimal.NewFromFloat(yesSize)
	np := decimal.NewFromFloat(noAsk)
	ns := decimal.NewFromFloat(noSize)
	return types.MarketBook{
		Market: types.Market{MarketID: "mkt-1", Active: active},
		YesToken: types.TokenBook{
			TokenID:      "yes-1",
			BestAskPrice: &yp,
			BestAskSize:  &ys,
		},
		NoToken: types.TokenBook{
			TokenID:      "no-1",
			BestAskPrice: &np,
			BestAskSize:  &ns,
		},
	}
}

func TestEvaluateMarketInactive(t *testing.T) {
	e := New(testConfig(time.Now()))
	market := marketWithQuotes(false, 0.40, 100, 0.40, 100)

	signal := e.Evaluate(market)
	if signal.Decision != types.SignalSkipMarketInactive {
		t.Fatalf("expected SKIP_MARKET_INACTIVE, got %s", signal.Decision)
	}
}

func TestEvaluateNoQuotes(t *testing.T) {
	e := New(testConfig(time.Now()))
	market := types.MarketBook{
		Market:   types.Market{MarketID: "mkt-1", Active: true},
		YesToken: types.TokenBook{TokenID: "yes-1"},
		NoToken:  types.TokenBook{TokenID: "no-1"},
	}

	signal := e.Evaluate(market)
	if signal.Decision != types.SignalSkipNoQuotes {
		t.Fatalf("expected SKIP_NO_QUOTES, got %s", signal.Decision)
	}
}

func TestEvaluateInFlightTakesPriorityOverEdge(t *testing.T) {
	e := New(testConfig(time.Now()))
	market := marketWithQuotes(true, 0.40, 100, 0.40, 100) // would otherwise trade
	e.SetInFlight("mkt-1")

	signal := e.Evaluate(market)
	if signal.Decision != types.SignalSkipInFlight {
		t.Fatalf("expected SKIP_IN_FLIGHT, got %s", signal.Decision)
	}
}

func TestEvaluateCooldownTakesPriorityOverEdge(t *testing.T) {
	now := time.Now()
	e := New(testConfig(now))
	market := marketWithQuotes(true, 0.40, 100, 0.40, 100)
	e.SetCooldown("mkt-1", 5*time.Second)

	signal := e.Evaluate(market)
	if signal.Decision != types.SignalSkipInCooldown {
		t.Fatalf("expected SKIP_IN_COOLDOWN, got %s", signal.Decision)
	}
}

func TestEvaluateCooldownExpires(t *testing.T) {
	start := time.Now()
	e := New(testConfig(start))
	market := marketWithQuotes(true, 0.40, 100, 0.40, 100)
	e.SetCooldown("mkt-1", 1*time.Second)

	e.cfg.Clock = func() time.Time { return start.Add(2 * time.Second) }

	signal := e.Evaluate(market)
	if signal.Decision == types.SignalSkipInCooldown {
		t.Fatal("expected cooldown to have expired")
	}
}

func TestEvaluateEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		yesAsk   float64
		yesSize  float64
		noAsk    float64
		noSize   float64
		decision types.SignalDecision
	}{
		{
			name:     "efficient-market-no-edge",
			yesAsk:   0.50, yesSize: 100,
			noAsk: 0.50, noSize: 100,
			decision: types.SignalSkipInsufficientEdge,
		},
		{
			name:     "wide-spread-tradeable",
			yesAsk:   0.40, yesSize: 100,
			noAsk: 0.40, noSize: 100,
			decision: types.SignalTrade,
		},
		{
			name:     "tradeable-edge-but-thin-depth",
			yesAsk:   0.40, yesSize: 3,
			noAsk: 0.40, noSize: 100,
			decision: types.SignalSkipInsufficientDepth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testConfig(time.Now()))
			market := marketWithQuotes(true, tt.yesAsk, tt.yesSize, tt.noAsk, tt.noSize)

			signal := e.Evaluate(market)
			if signal.Decision != tt.decision {
				t.Errorf("expected %s, got %s (edge=%v)", tt.decision, signal.Decision, signal.Edge)
			}
		})
	}
}

func TestEvaluateEdgeArithmetic(t *testing.T) {
	e := New(testConfig(time.Now()))
	market := marketWithQuotes(true, 0.40, 100, 0.40, 100)

	signal := e.Evaluate(market)
	if signal.Decision != types.SignalTrade {
		t.Fatalf("expected TRADE, got %s", signal.Decision)
	}

	// sum_cost = 0.80, fee = 0.016, buffer = 0.005
	// edge = 1 - 0.80 - 0.016 - 0.005 = 0.179
	want := decimal.NewFromFloat(0.179)
	if !signal.Edge.Equal(want) {
		t.Errorf("expected edge %s, got %s", want, signal.Edge)
	}
}

func TestClearInFlightAndCooldown(t *testing.T) {
	e := New(testConfig(time.Now()))
	e.SetInFlight("mkt-1")
	e.SetCooldown("mkt-1", time.Minute)

	e.ClearInFlight("mkt-1")
	e.ClearCooldown("mkt-1")

	market := marketWithQuotes(true, 0.40, 100, 0.40, 100)
	signal := e.Evaluate(market)
	if signal.Decision != types.SignalTrade {
		t.Fatalf("expected TRADE after clearing state, got %s", signal.Decision)
	}
}

func TestInFlightMarkets(t *testing.T) {
	e := New(testConfig(time.Now()))
	e.SetInFlight("mkt-1")
	e.SetInFlight("mkt-2")

	markets := e.InFlightMarkets()
	if len(markets) != 2 {
		t.Fatalf("expected 2 in-flight markets, got %d", len(markets))
	}
}
