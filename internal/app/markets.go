package app

import (
	"context"
	"fmt"

	"github.com/biserd/completeset-arb/pkg/types"
)

// discoverMarkets resolves the set of markets to subscribe to: an
// explicit cfg.Markets list if given, otherwise the venue's top active
// markets up to defaultMarketLimit.
func (a *App) discoverMarkets(ctx context.Context) ([]types.Market, error) {
	if len(a.markets) > 0 {
		markets := make([]types.Market, 0, len(a.markets))
		for _, id := range a.markets {
			m, err := a.venue.GetMarketInfo(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get market info for %q: %w", id, err)
			}
			markets = append(markets, m)
		}
		return markets, nil
	}

	all, err := a.venue.ListMarkets(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	if len(all) > defaultMarketLimit {
		all = all[:defaultMarketLimit]
	}
	return all, nil
}
