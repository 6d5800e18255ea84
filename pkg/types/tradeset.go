package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSetStatus is the closed set of tradeset lifecycle states. Status
// transitions only move forward; a TradeSet never reverts to an
// earlier status.
type TradeSetStatus string

const (
	TradeSetPending     TradeSetStatus = "pending"
	TradeSetFilled      TradeSetStatus = "filled"
	TradeSetPartialFill TradeSetStatus = "partial_fill"
	TradeSetFailed      TradeSetStatus = "failed"
	TradeSetResolved    TradeSetStatus = "resolved"
)

// TradeSet is the unit of atomicity from the engine's point of view:
// two paired orders (one YES BUY, one NO BUY) issued to acquire one
// complete set.
type TradeSet struct {
	ID                int64
	MarketID          string
	Status            TradeSetStatus
	YesOrderID        string
	NoOrderID         string
	YesCost           decimal.Decimal
	NoCost            decimal.Decimal
	TotalCost         decimal.Decimal
	TotalFees         decimal.Decimal
	ExpectedPayout    decimal.Decimal
	RealizedPnL       decimal.NullDecimal
	ResolutionOutcome string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
