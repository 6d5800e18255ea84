package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is one price/size pair from a venue order book.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BookSnapshot is the logical payload the adapter delivers on every
// book update: the top-of-book for one token. Only the best level on
// each side is required by the core; deeper levels are ignored.
type BookSnapshot struct {
	MarketID  string
	TokenID   string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
	Sequence  *int64 // nil when the venue does not provide monotonic sequencing
}

// TokenBook is the best-of-book state for one outcome token.
type TokenBook struct {
	TokenID       string
	BestBidPrice  *decimal.Decimal
	BestBidSize   *decimal.Decimal
	BestAskPrice  *decimal.Decimal
	BestAskSize   *decimal.Decimal
	LastUpdate    time.Time
	Sequence      *int64
}

// HasAsk reports whether this token currently has a usable best ask.
func (t TokenBook) HasAsk() bool {
	return t.BestAskPrice != nil && t.BestAskSize != nil
}

// MarketBook pairs a Market with its YES and NO TokenBooks.
type MarketBook struct {
	Market   Market
	YesToken TokenBook
	NoToken  TokenBook
}

// HasValidQuotes reports whether both sides have a best ask.
func (m MarketBook) HasValidQuotes() bool {
	return m.YesToken.HasAsk() && m.NoToken.HasAsk()
}

// SumAskCost is YES ask + NO ask, the cost to buy one complete set.
// Returns false if either side lacks a quote.
func (m MarketBook) SumAskCost() (decimal.Decimal, bool) {
	if !m.HasValidQuotes() {
		return decimal.Zero, false
	}
	return m.YesToken.BestAskPrice.Add(*m.NoToken.BestAskPrice), true
}

// MinAvailableSize is the smaller of the two ask sizes.
func (m MarketBook) MinAvailableSize() (decimal.Decimal, bool) {
	if !m.HasValidQuotes() {
		return decimal.Zero, false
	}
	if m.YesToken.BestAskSize.LessThan(*m.NoToken.BestAskSize) {
		return *m.YesToken.BestAskSize, true
	}
	return *m.NoToken.BestAskSize, true
}

// LastUpdateTime is the most recent update timestamp from either side.
func (m MarketBook) LastUpdateTime() time.Time {
	if m.YesToken.LastUpdate.After(m.NoToken.LastUpdate) {
		return m.YesToken.LastUpdate
	}
	return m.NoToken.LastUpdate
}
