package polymarket

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGammaMarketToDomain(t *testing.T) {
	g := gammaMarket{
		ID:          "mkt-1",
		Question:    "Will it happen?",
		Active:      true,
		Closed:      false,
		Outcomes:    `["Yes","No"]`,
		ClobTokens:  `["111","222"]`,
		MinTickSize: "0.001",
	}

	market, err := g.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if market.YesToken != "111" || market.NoToken != "222" {
		t.Errorf("expected yes/no tokens 111/222, got %s/%s", market.YesToken, market.NoToken)
	}
	if !market.Active {
		t.Error("expected market to be active")
	}
	if !market.MinTick.Equal(decimal.NewFromFloat(0.001)) {
		t.Errorf("expected tick 0.001, got %s", market.MinTick)
	}
}

func TestGammaMarketToDomainClosedIsNotActive(t *testing.T) {
	g := gammaMarket{ID: "mkt-2", Active: true, Closed: true}
	market, err := g.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if market.Active {
		t.Error("expected a closed market to be inactive regardless of the active flag")
	}
}

func TestGammaMarketToDomainDefaultsTickSize(t *testing.T) {
	g := gammaMarket{ID: "mkt-3", Outcomes: `["Yes","No"]`, ClobTokens: `["1","2"]`}
	market, err := g.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !market.MinTick.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("expected default tick 0.01, got %s", market.MinTick)
	}
}

func TestGammaMarketToDomainMalformedOutcomes(t *testing.T) {
	g := gammaMarket{ID: "mkt-4", Outcomes: "not-json"}
	if _, err := g.toDomain(); err == nil {
		t.Error("expected an error for malformed outcomes JSON")
	}
}
