// Package signal implements the complete-set arbitrage Signal Engine:
// a pure evaluation of one market's book state against strategy
// thresholds, gated by a strict first-match-wins cascade so exactly
// one decision is ever returned for a given market snapshot.
package signal

import (
	"sync"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	one = decimal.NewFromInt(1)
)

// Config holds the thresholds the engine gates on. Field names mirror
// the strategy config table.
type Config struct {
	MinEdge    decimal.Decimal
	CostBuffer decimal.Decimal
	MinDepth   decimal.Decimal
	FeeRate    decimal.Decimal
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Engine evaluates markets for tradeable edge. It is safe for
// concurrent use; in-flight and cooldown state are the only mutable
// fields and are protected by a mutex, matching the single-writer
// discipline the execution engine relies on when calling SetInFlight.
type Engine struct {
	cfg Config

	mu        sync.Mutex
	inFlight  map[string]struct{}
	cooldowns map[string]time.Time
}

// New builds an Engine. If cfg.Clock is nil, time.Now is used.
func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Engine{
		cfg:       cfg,
		inFlight:  make(map[string]struct{}),
		cooldowns: make(map[string]time.Time),
	}
}

// Evaluate runs the gating cascade against one market's current book
// state and returns the resulting signal. Every branch is annotated
// with the quote/size snapshot available at that gate so the signal is
// a complete audit record regardless of outcome.
func (e *Engine) Evaluate(market types.MarketBook) types.TradeSignal {
	signal := e.evaluate(market)
	DecisionsTotal.WithLabelValues(string(signal.Decision)).Inc()
	if signal.Edge != nil {
		bps, _ := signal.Edge.Mul(decimal.NewFromInt(10000)).Float64()
		EdgeBPS.Observe(bps)
	}
	return signal
}

func (e *Engine) evaluate(market types.MarketBook) types.TradeSignal {
	now := e.cfg.Clock()

	base := types.TradeSignal{
		MarketID:   market.Market.MarketID,
		Timestamp:  now,
		CostBuffer: e.cfg.CostBuffer,
		YesAsk:     market.YesToken.BestAskPrice,
		NoAsk:      market.NoToken.BestAskPrice,
		YesSize:    market.YesToken.BestAskSize,
		NoSize:     market.NoToken.BestAskSize,
	}

	if !market.Market.Active {
		base.Decision = types.SignalSkipMarketInactive
		base.Reason = "market is inactive"
		return base
	}

	if !market.HasValidQuotes() {
		base.Decision = types.SignalSkipNoQuotes
		base.Reason = "missing quotes for one or both tokens"
		return base
	}

	e.mu.Lock()
	_, inFlight := e.inFlight[market.Market.MarketID]
	cooldownUntil, onCooldown := e.cooldowns[market.Market.MarketID]
	e.mu.Unlock()

	if inFlight {
		base.Decision = types.SignalSkipInFlight
		base.Reason = "orders currently in flight"
		sum, _ := market.SumAskCost()
		base.SumCost = &sum
		return base
	}

	if onCooldown && now.Before(cooldownUntil) {
		base.Decision = types.SignalSkipInCooldown
		base.Reason = "market in cooldown until " + cooldownUntil.Format(time.RFC3339)
		sum, _ := market.SumAskCost()
		base.SumCost = &sum
		return base
	}

	sumCost, _ := market.SumAskCost()
	totalFee := sumCost.Mul(e.cfg.FeeRate)
	edge := one.Sub(sumCost).Sub(totalFee).Sub(e.cfg.CostBuffer)
	base.SumCost = &sumCost
	base.Edge = &edge

	if edge.LessThan(e.cfg.MinEdge) {
		base.Decision = types.SignalSkipInsufficientEdge
		base.Reason = "edge below minimum threshold"
		return base
	}

	minSize, _ := market.MinAvailableSize()
	if minSize.LessThan(e.cfg.MinDepth) {
		base.Decision = types.SignalSkipInsufficientDepth
		base.Reason = "available depth below minimum threshold"
		return base
	}

	base.Decision = types.SignalTrade
	base.Reason = "opportunity detected"
	return base
}

// SetInFlight marks a market as having an order sequence in progress.
// The execution engine calls this once a TRADE signal has passed its
// risk pre-check, before it creates the tradeset and places any leg.
func (e *Engine) SetInFlight(marketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight[marketID] = struct{}{}
}

// ClearInFlight removes a market's in-flight marker.
func (e *Engine) ClearInFlight(marketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, marketID)
}

// SetCooldown puts a market on cooldown for the given duration,
// measured from the engine's clock.
func (e *Engine) SetCooldown(marketID string, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldowns[marketID] = e.cfg.Clock().Add(duration)
}

// ClearCooldown lifts any cooldown on a market.
func (e *Engine) ClearCooldown(marketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cooldowns, marketID)
}

// InFlightMarkets returns the market IDs currently marked in flight.
func (e *Engine) InFlightMarkets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.inFlight))
	for id := range e.inFlight {
		out = append(out, id)
	}
	return out
}
