package markets

import (
	"context"
	"errors"
	"testing"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
)

type fakeFetcher struct {
	market types.Market
	err    error
	calls  int
}

func (f *fakeFetcher) GetMarketInfo(ctx context.Context, marketID string) (types.Market, error) {
	f.calls++
	return f.market, f.err
}

func TestMetadataClient_FetchMarketMetadata(t *testing.T) {
	fetcher := &fakeFetcher{market: types.Market{
		MarketID: "mkt-1",
		MinTick:  decimal.NewFromFloat(0.001),
	}}
	client := NewMetadataClient(fetcher)

	meta, err := client.FetchMarketMetadata(context.Background(), "mkt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !meta.MinTick.Equal(decimal.NewFromFloat(0.001)) {
		t.Errorf("expected tick 0.001, got %s", meta.MinTick)
	}
	if fetcher.calls != 1 {
		t.Errorf("expected exactly one fetch, got %d", fetcher.calls)
	}
}

func TestMetadataClient_FetchMarketMetadata_DefaultsOnMissingTick(t *testing.T) {
	fetcher := &fakeFetcher{market: types.Market{MarketID: "mkt-1"}}
	client := NewMetadataClient(fetcher)

	meta, err := client.FetchMarketMetadata(context.Background(), "mkt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !meta.MinTick.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("expected default tick 0.01, got %s", meta.MinTick)
	}
}

func TestMetadataClient_FetchMarketMetadata_NonRetryableFailsFast(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("market not found: 404")}
	client := NewMetadataClientWithConfig(fetcher, MetadataClientConfig{MaxRetries: 5})

	meta, err := client.FetchMarketMetadata(context.Background(), "mkt-missing")
	if err == nil {
		t.Fatal("expected an error")
	}
	if fetcher.calls != 1 {
		t.Errorf("expected a non-retryable error to fail after a single attempt, got %d calls", fetcher.calls)
	}
	if !meta.MinTick.Equal(decimal.NewFromFloat(0.01)) || !meta.MinOrderSize.Equal(defaultMinOrderSize) {
		t.Errorf("expected conservative defaults on failure, got %+v", meta)
	}
}

func TestMetadataClient_FetchMarketMetadata_RetriesTransientFailures(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("503 service unavailable")}
	client := NewMetadataClientWithConfig(fetcher, MetadataClientConfig{
		MaxRetries:     2,
		InitialBackoff: 0,
		MaxBackoff:     0,
	})

	_, err := client.FetchMarketMetadata(context.Background(), "mkt-1")
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if fetcher.calls != 3 {
		t.Errorf("expected 1 initial attempt + 2 retries = 3 calls, got %d", fetcher.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("429 rate limited"), true},
		{errors.New("connection refused"), true},
		{errors.New("market not found"), false},
		{context.DeadlineExceeded, true},
	}
	for _, tc := range cases {
		if got := isRetryable(tc.err); got != tc.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
