// Package types holds the shared domain model for the complete-set
// arbitrage engine: markets, order books, orders, tradesets, signals,
// and risk events. Every price, size, edge, fee, and PnL field is a
// fixed-point decimal.Decimal; none of this package uses float64.
package types

import "github.com/shopspring/decimal"

// Market identifies a binary prediction market and its two outcome
// tokens.
type Market struct {
	MarketID  string
	Question  string
	YesToken  string
	NoToken   string
	MinTick   decimal.Decimal
	Active    bool
}
