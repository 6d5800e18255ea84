package polymarket

import (
	"context"
	"fmt"

	"github.com/biserd/completeset-arb/internal/adapter"
)

// ConnectWS starts the market-data WebSocket feed.
func (c *Client) ConnectWS(ctx context.Context) error {
	return c.feed.start(ctx)
}

// DisconnectWS tears down the market-data WebSocket feed.
func (c *Client) DisconnectWS() error {
	return c.feed.stop()
}

// SubscribeMarkets subscribes the feed to each market's YES/NO tokens.
// The feed has no notion of a market, only of the tokens it streams
// book updates for, so every market ID is first resolved to its token
// pair through GetMarketInfo.
func (c *Client) SubscribeMarkets(ctx context.Context, marketIDs []string) error {
	tokenIDs := make([]string, 0, 2*len(marketIDs))
	for _, id := range marketIDs {
		market, err := c.GetMarketInfo(ctx, id)
		if err != nil {
			return fmt.Errorf("polymarket: resolve tokens for market %s: %w", id, err)
		}
		tokenIDs = append(tokenIDs, market.YesToken, market.NoToken)
	}
	return c.feed.subscribe(ctx, tokenIDs)
}

// IsConnected reports whether the feed's WebSocket is currently up.
func (c *Client) IsConnected() bool {
	return c.feed.connected()
}

func (c *Client) SetBookUpdateCallback(fn adapter.BookUpdateFunc) {
	c.feed.setOnBook(fn)
}

func (c *Client) SetFillCallback(fn adapter.FillFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFill = fn
}

// handleDisconnect is invoked once per detected drop, before the
// feed's reconnect loop starts backing off.
func (c *Client) handleDisconnect() {
	FeedDisconnectsTotal.Inc()
	if c.cfg.OnDisconnect != nil {
		c.cfg.OnDisconnect()
	}
}
