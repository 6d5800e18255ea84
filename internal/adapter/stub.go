package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StubAdapter is a deterministic in-memory Adapter used for paper
// trading and tests. Every order fills immediately at the requested
// price and size; there is no simulated latency, slippage, or
// rejection, so behavior is fully reproducible given the same inputs
// and injected Clock.
type StubAdapter struct {
	mu      sync.Mutex
	markets map[string]types.Market
	orders  map[string]types.Order
	fee     decimal.Decimal
	clock   func() time.Time

	connected bool
	onBook    BookUpdateFunc
	onFill    FillFunc
}

// StubConfig configures a StubAdapter.
type StubConfig struct {
	Markets []types.Market
	FeeRate decimal.Decimal
	Clock   func() time.Time
}

// NewStub builds a StubAdapter pre-seeded with the given markets.
func NewStub(cfg StubConfig) *StubAdapter {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	markets := make(map[string]types.Market, len(cfg.Markets))
	for _, m := range cfg.Markets {
		markets[m.MarketID] = m
	}
	return &StubAdapter{
		markets: markets,
		orders:  make(map[string]types.Order),
		fee:     cfg.FeeRate,
		clock:   clock,
	}
}

func (s *StubAdapter) ConnectWS(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *StubAdapter) DisconnectWS() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *StubAdapter) SubscribeMarkets(ctx context.Context, marketIDs []string) error {
	return nil
}

// PushSnapshot lets a test or the paper-trading driver inject a book
// update as though it arrived over the adapter's feed.
func (s *StubAdapter) PushSnapshot(snapshot types.BookSnapshot) {
	s.mu.Lock()
	cb := s.onBook
	s.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

func (s *StubAdapter) GetSnapshotREST(ctx context.Context, marketID string) (types.BookSnapshot, error) {
	return types.BookSnapshot{}, fmt.Errorf("adapter: no REST snapshot seeded for %q", marketID)
}

func (s *StubAdapter) GetMarketInfo(ctx context.Context, marketID string) (types.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[marketID]
	if !ok {
		return types.Market{}, fmt.Errorf("adapter: unknown market %q", marketID)
	}
	return m, nil
}

func (s *StubAdapter) ListMarkets(ctx context.Context, activeOnly bool) ([]types.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Market, 0, len(s.markets))
	for _, m := range s.markets {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// PlaceOrder fills immediately and in full: the stub never partially
// fills, so execution engine tests that need partial-fill recovery
// must drive that behavior through a test double of their own rather
// than through this adapter.
func (s *StubAdapter) PlaceOrder(ctx context.Context, marketID, tokenID string, side types.OrderSide, orderType types.OrderType, price, size decimal.Decimal) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	order := types.Order{
		OrderID:      uuid.New().String(),
		MarketID:     marketID,
		TokenID:      tokenID,
		Side:         side,
		Type:         orderType,
		Price:        price,
		Size:         size,
		Status:       types.OrderStatusFilled,
		FilledSize:   size,
		AvgFillPrice: price,
		Fee:          price.Mul(size).Mul(s.fee),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.orders[order.OrderID] = order

	if s.onFill != nil {
		fill := types.Fill{
			FillID:    uuid.New().String(),
			OrderID:   order.OrderID,
			Price:     price,
			Size:      size,
			Fee:       order.Fee,
			Timestamp: now,
		}
		s.onFill(fill)
	}

	return order, nil
}

func (s *StubAdapter) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return false, fmt.Errorf("adapter: unknown order %q", orderID)
	}
	if !order.Status.IsOpenForCancel() {
		return false, nil
	}
	order.Status = types.OrderStatusCancelled
	order.UpdatedAt = s.clock()
	s.orders[orderID] = order
	return true, nil
}

func (s *StubAdapter) GetOrderStatus(ctx context.Context, orderID string) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return types.Order{}, fmt.Errorf("adapter: unknown order %q", orderID)
	}
	return order, nil
}

func (s *StubAdapter) SetBookUpdateCallback(fn BookUpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBook = fn
}

func (s *StubAdapter) SetFillCallback(fn FillFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFill = fn
}

func (s *StubAdapter) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *StubAdapter) VenueName() string {
	return "stub"
}

func (s *StubAdapter) FeeRate() decimal.Decimal {
	return s.fee
}
