package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalDecision is the closed set of outcomes the signal engine can
// emit for one evaluation. Order here mirrors the first-match-wins
// gating order the engine evaluates in; it is not otherwise meaningful.
type SignalDecision string

const (
	SignalTrade                  SignalDecision = "TRADE"
	SignalSkipMarketInactive     SignalDecision = "SKIP_MARKET_INACTIVE"
	SignalSkipNoQuotes           SignalDecision = "SKIP_NO_QUOTES"
	SignalSkipInFlight           SignalDecision = "SKIP_IN_FLIGHT"
	SignalSkipInCooldown         SignalDecision = "SKIP_IN_COOLDOWN"
	SignalSkipInsufficientEdge   SignalDecision = "SKIP_INSUFFICIENT_EDGE"
	SignalSkipInsufficientDepth  SignalDecision = "SKIP_INSUFFICIENT_DEPTH"
)

// TradeSignal is the immutable result of one signal engine evaluation.
// It is the audit unit of what the engine saw and why it did or did
// not act, and is always written to the ledger's opportunities table,
// whether or not it is tradeable.
type TradeSignal struct {
	MarketID   string
	Timestamp  time.Time
	Decision   SignalDecision
	YesAsk     *decimal.Decimal
	NoAsk      *decimal.Decimal
	YesSize    *decimal.Decimal
	NoSize     *decimal.Decimal
	SumCost    *decimal.Decimal
	Edge       *decimal.Decimal
	CostBuffer decimal.Decimal
	Reason     string
}

// IsTradeable reports whether this signal calls for execution.
func (s TradeSignal) IsTradeable() bool {
	return s.Decision == SignalTrade
}
