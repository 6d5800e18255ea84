package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// gammaMarket is the Gamma API's wire shape for a market; it encodes
// outcomes and CLOB token IDs as JSON-inside-JSON strings rather than
// nested arrays.
type gammaMarket struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`
	Outcomes    string `json:"outcomes"`     // e.g. `["Yes","No"]`
	ClobTokens  string `json:"clobTokenIds"` // e.g. `["123...","456..."]`
	MinTickSize string `json:"minimum_tick_size,omitempty"`
}

func (g gammaMarket) toDomain() (types.Market, error) {
	var outcomes []string
	if g.Outcomes != "" {
		if err := json.Unmarshal([]byte(g.Outcomes), &outcomes); err != nil {
			return types.Market{}, fmt.Errorf("parse outcomes: %w", err)
		}
	}
	var tokenIDs []string
	if g.ClobTokens != "" {
		if err := json.Unmarshal([]byte(g.ClobTokens), &tokenIDs); err != nil {
			return types.Market{}, fmt.Errorf("parse clobTokenIds: %w", err)
		}
	}

	market := types.Market{
		MarketID: g.ID,
		Question: g.Question,
		Active:   g.Active && !g.Closed,
		MinTick:  decimal.NewFromFloat(0.01),
	}
	if g.MinTickSize != "" {
		if tick, err := decimal.NewFromString(g.MinTickSize); err == nil {
			market.MinTick = tick
		}
	}

	for i, outcome := range outcomes {
		if i >= len(tokenIDs) {
			break
		}
		switch outcome {
		case "Yes":
			market.YesToken = tokenIDs[i]
		case "No":
			market.NoToken = tokenIDs[i]
		}
	}
	return market, nil
}

// ListMarkets lists markets from the Gamma API, optionally filtered
// to active, non-closed ones.
func (c *Client) ListMarkets(ctx context.Context, activeOnly bool) ([]types.Market, error) {
	params := url.Values{}
	params.Set("limit", "100")
	if activeOnly {
		params.Set("active", "true")
		params.Set("closed", "false")
	}

	var raw []gammaMarket
	if err := c.gammaGet(ctx, "/markets", params, &raw); err != nil {
		return nil, fmt.Errorf("polymarket: list markets: %w", err)
	}

	markets := make([]types.Market, 0, len(raw))
	for _, g := range raw {
		market, err := g.toDomain()
		if err != nil {
			c.logger.Warn("polymarket-skip-unparseable-market", zap.String("id", g.ID), zap.Error(err))
			continue
		}
		markets = append(markets, market)
	}
	return markets, nil
}

// GetMarketInfo fetches a single market by ID.
func (c *Client) GetMarketInfo(ctx context.Context, marketID string) (types.Market, error) {
	var raw gammaMarket
	if err := c.gammaGet(ctx, "/markets/"+marketID, nil, &raw); err != nil {
		return types.Market{}, fmt.Errorf("polymarket: get market %s: %w", marketID, err)
	}
	return raw.toDomain()
}

// clobBookResponse is the CLOB REST order book snapshot shape.
type clobBookResponse struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Bids    []wireLevel `json:"bids"`
	Asks    []wireLevel `json:"asks"`
}

// GetSnapshotREST fetches a one-shot order book snapshot over REST for
// a market's YES token only; the NO token's book is not fetched.
func (c *Client) GetSnapshotREST(ctx context.Context, marketID string) (types.BookSnapshot, error) {
	market, err := c.GetMarketInfo(ctx, marketID)
	if err != nil {
		return types.BookSnapshot{}, err
	}

	var resp clobBookResponse
	if err := c.signAndGet(ctx, "/book?token_id="+market.YesToken, &resp); err != nil {
		return types.BookSnapshot{}, fmt.Errorf("polymarket: get snapshot: %w", err)
	}

	snapshot, ok := toSnapshot(wireMessage{
		AssetID: resp.AssetID,
		Market:  resp.Market,
		Bids:    resp.Bids,
		Asks:    resp.Asks,
	})
	if !ok {
		return types.BookSnapshot{}, fmt.Errorf("polymarket: empty snapshot for market %s", marketID)
	}
	return snapshot, nil
}
