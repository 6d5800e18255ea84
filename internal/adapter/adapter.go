// Package adapter defines the venue-agnostic trading interface the
// execution engine and market discovery loop are written against, and
// provides a deterministic in-memory implementation for paper trading
// and tests. Live venues implement Adapter in their own subpackage
// (see internal/adapter/polymarket).
package adapter

import (
	"context"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// BookUpdateFunc is invoked on every order book update the adapter's
// market data feed produces.
type BookUpdateFunc func(types.BookSnapshot)

// FillFunc is invoked on every fill the adapter's order tracking
// produces.
type FillFunc func(types.Fill)

// Adapter is the venue-agnostic interface the engine depends on.
// Implementations must be safe for concurrent use: ConnectWS spawns
// the feed goroutine(s) that call the registered callbacks, while
// PlaceOrder/CancelOrder/GetOrderStatus are called from the execution
// engine (which places the YES and NO legs one after the other) and
// the startup path.
type Adapter interface {
	ConnectWS(ctx context.Context) error
	DisconnectWS() error
	SubscribeMarkets(ctx context.Context, marketIDs []string) error

	GetSnapshotREST(ctx context.Context, marketID string) (types.BookSnapshot, error)
	GetMarketInfo(ctx context.Context, marketID string) (types.Market, error)
	ListMarkets(ctx context.Context, activeOnly bool) ([]types.Market, error)

	PlaceOrder(ctx context.Context, marketID, tokenID string, side types.OrderSide, orderType types.OrderType, price, size decimal.Decimal) (types.Order, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	GetOrderStatus(ctx context.Context, orderID string) (types.Order, error)

	SetBookUpdateCallback(fn BookUpdateFunc)
	SetFillCallback(fn FillFunc)

	IsConnected() bool
	VenueName() string
	FeeRate() decimal.Decimal
}
