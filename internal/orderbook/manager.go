// Package orderbook tracks best-of-book state for every registered
// market, keyed by market ID with a reverse token-to-market index so
// inbound adapter updates (keyed by token) can be routed in O(1).
package orderbook

import (
	"fmt"
	"sync"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Manager is the single in-memory source of truth for order book state.
// All methods are safe for concurrent use; callers never see partially
// applied updates because every read returns a defensive copy.
type Manager struct {
	mu            sync.RWMutex
	books         map[string]*types.MarketBook // key: market_id
	tokenToMarket map[string]string             // key: token_id
	updateChan    chan types.MarketBook
	logger        *zap.Logger
}

// Config holds orderbook manager configuration.
type Config struct {
	Logger *zap.Logger
}

// New creates an empty Manager.
func New(cfg *Config) *Manager {
	return &Manager{
		books:         make(map[string]*types.MarketBook),
		tokenToMarket: make(map[string]string),
		updateChan:    make(chan types.MarketBook, 10000),
		logger:        cfg.Logger,
	}
}

// Register adds a market to be tracked. Calling Register twice for the
// same market ID resets its book state to empty.
func (m *Manager) Register(market types.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.books[market.MarketID] = &types.MarketBook{
		Market:   market,
		YesToken: types.TokenBook{TokenID: market.YesToken},
		NoToken:  types.TokenBook{TokenID: market.NoToken},
	}
	m.tokenToMarket[market.YesToken] = market.MarketID
	m.tokenToMarket[market.NoToken] = market.MarketID

	MarketsTracked.Set(float64(len(m.books)))
	m.logger.Debug("market-registered",
		zap.String("market-id", market.MarketID),
		zap.String("yes-token", market.YesToken),
		zap.String("no-token", market.NoToken))
}

// ApplySnapshot updates the best-of-book for whichever side the
// snapshot's token belongs to. It returns the market ID the update was
// applied to, or ok=false if the token is not registered or the
// snapshot is stale: a sequence number not above the one already held,
// or, without a sequence, a timestamp older than the last update (an
// equal timestamp is accepted).
func (m *Manager) ApplySnapshot(snapshot types.BookSnapshot) (marketID string, ok bool) {
	lockStart := time.Now()
	m.mu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())
	defer m.mu.Unlock()

	marketID, found := m.tokenToMarket[snapshot.TokenID]
	if !found {
		UpdatesDroppedTotal.WithLabelValues("unknown_token").Inc()
		return "", false
	}

	book, found := m.books[marketID]
	if !found {
		return "", false
	}

	var token *types.TokenBook
	switch snapshot.TokenID {
	case book.YesToken.TokenID:
		token = &book.YesToken
	case book.NoToken.TokenID:
		token = &book.NoToken
	default:
		return "", false
	}

	if snapshot.Sequence != nil && token.Sequence != nil && *snapshot.Sequence <= *token.Sequence {
		UpdatesDroppedTotal.WithLabelValues("stale_sequence").Inc()
		return "", false
	}
	if snapshot.Sequence == nil && snapshot.Timestamp.Before(token.LastUpdate) {
		UpdatesDroppedTotal.WithLabelValues("stale_timestamp").Inc()
		return "", false
	}

	applyBestLevel(token, snapshot)
	token.LastUpdate = snapshot.Timestamp
	token.Sequence = snapshot.Sequence

	UpdatesTotal.Inc()

	bookCopy := *book
	select {
	case m.updateChan <- bookCopy:
	default:
		m.logger.Warn("orderbook-update-channel-full-dropping-update",
			zap.String("market-id", marketID),
			zap.Int("buffer-size", cap(m.updateChan)))
		UpdatesDroppedTotal.WithLabelValues("channel_full").Inc()
	}

	return marketID, true
}

func applyBestLevel(token *types.TokenBook, snapshot types.BookSnapshot) {
	if len(snapshot.Asks) > 0 {
		price := snapshot.Asks[0].Price
		size := snapshot.Asks[0].Size
		token.BestAskPrice = &price
		token.BestAskSize = &size
	} else {
		token.BestAskPrice = nil
		token.BestAskSize = nil
	}

	if len(snapshot.Bids) > 0 {
		price := snapshot.Bids[0].Price
		size := snapshot.Bids[0].Size
		token.BestBidPrice = &price
		token.BestBidSize = &size
	} else {
		token.BestBidPrice = nil
		token.BestBidSize = nil
	}
}

// Read returns a defensive copy of one market's book, or ok=false if
// the market isn't registered.
func (m *Manager) Read(marketID string) (types.MarketBook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	book, found := m.books[marketID]
	if !found {
		return types.MarketBook{}, false
	}
	return *book, true
}

// ReadAll returns a defensive copy of every registered market's book.
func (m *Manager) ReadAll() []types.MarketBook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.MarketBook, 0, len(m.books))
	for _, book := range m.books {
		out = append(out, *book)
	}
	return out
}

// TokenIDs returns every tracked token ID, both legs of every
// registered market.
func (m *Manager) TokenIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.tokenToMarket))
	for tokenID := range m.tokenToMarket {
		out = append(out, tokenID)
	}
	return out
}

// MarketCount returns the number of markets currently tracked.
func (m *Manager) MarketCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books)
}

// Updates returns the channel the signal engine reads from to learn
// about book changes as they happen.
func (m *Manager) Updates() <-chan types.MarketBook {
	return m.updateChan
}

// SetActive flips a market's active flag, used when market metadata
// refresh reports a market has closed or resolved.
func (m *Manager) SetActive(marketID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, found := m.books[marketID]
	if !found {
		return fmt.Errorf("orderbook: unknown market %q", marketID)
	}
	book.Market.Active = active
	return nil
}

// Close releases the update channel. Safe to call once, after the
// adapter feed that writes into this manager has stopped.
func (m *Manager) Close() {
	close(m.updateChan)
}
