package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/biserd/completeset-arb/internal/adapter"
	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
)

func TestDiscoverMarkets_ExplicitList(t *testing.T) {
	stub := adapter.NewStub(adapter.StubConfig{
		Markets: []types.Market{
			{MarketID: "mkt-1", YesToken: "yes-1", NoToken: "no-1", MinTick: decimal.NewFromFloat(0.01), Active: true},
			{MarketID: "mkt-2", YesToken: "yes-2", NoToken: "no-2", MinTick: decimal.NewFromFloat(0.01), Active: true},
		},
		FeeRate: decimal.NewFromFloat(0.01),
	})

	a := &App{venue: stub, markets: []string{"mkt-1"}}

	markets, err := a.discoverMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 1 || markets[0].MarketID != "mkt-1" {
		t.Errorf("expected exactly mkt-1, got %+v", markets)
	}
}

func TestDiscoverMarkets_AutoDiscoverCapsAtLimit(t *testing.T) {
	seeded := make([]types.Market, 0, defaultMarketLimit+5)
	for i := 0; i < defaultMarketLimit+5; i++ {
		seeded = append(seeded, types.Market{
			MarketID: fmt.Sprintf("mkt-%d", i),
			Active:   true,
		})
	}
	stub := adapter.NewStub(adapter.StubConfig{Markets: seeded, FeeRate: decimal.NewFromFloat(0.01)})

	a := &App{venue: stub}

	markets, err := a.discoverMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) > defaultMarketLimit {
		t.Errorf("expected at most %d markets, got %d", defaultMarketLimit, len(markets))
	}
}

func TestDiscoverMarkets_UnknownExplicitMarketErrors(t *testing.T) {
	stub := adapter.NewStub(adapter.StubConfig{FeeRate: decimal.NewFromFloat(0.01)})
	a := &App{venue: stub, markets: []string{"does-not-exist"}}

	if _, err := a.discoverMarkets(context.Background()); err == nil {
		t.Error("expected an error for an unknown explicit market ID")
	}
}
