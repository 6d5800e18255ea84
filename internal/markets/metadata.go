// Package markets caches venue market metadata — tick size and minimum
// order size — behind a retrying fetch so the execution engine and the
// adapter's own order-sizing logic don't hit the venue's REST API on
// every call.
package markets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketInfoFetcher is the narrow slice of adapter.Adapter this package
// depends on; any venue adapter satisfies it without an import cycle.
type MarketInfoFetcher interface {
	GetMarketInfo(ctx context.Context, marketID string) (types.Market, error)
}

// MetadataClient wraps a MarketInfoFetcher with retry and exponential
// backoff on transient failures.
type MetadataClient struct {
	fetcher           MarketInfoFetcher
	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	logger            *zap.Logger
}

// MetadataClientConfig configures a MetadataClient.
type MetadataClientConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Logger            *zap.Logger
}

// NewMetadataClient builds a MetadataClient over fetcher with default
// retry configuration.
func NewMetadataClient(fetcher MarketInfoFetcher) *MetadataClient {
	return NewMetadataClientWithConfig(fetcher, MetadataClientConfig{
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Logger:            zap.NewNop(),
	})
}

// NewMetadataClientWithConfig builds a MetadataClient with custom retry
// configuration, defaulting any zero-valued field.
func NewMetadataClientWithConfig(fetcher MarketInfoFetcher, cfg MetadataClientConfig) *MetadataClient {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.BackoffMultiplier == 0 {
		cfg.BackoffMultiplier = 2.0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &MetadataClient{
		fetcher:           fetcher,
		maxRetries:        cfg.MaxRetries,
		initialBackoff:    cfg.InitialBackoff,
		maxBackoff:        cfg.MaxBackoff,
		backoffMultiplier: cfg.BackoffMultiplier,
		logger:            cfg.Logger,
	}
}

// isRetryable decides whether a GetMarketInfo failure is worth another
// attempt: transient transport/rate-limit errors are, a malformed
// response or a market that genuinely doesn't exist isn't.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{"429", "500", "502", "503", "timeout", "connection refused", "connection reset"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func (c *MetadataClient) fetchWithRetry(ctx context.Context, operation string, fetchFn func() error) error {
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := fetchFn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == c.maxRetries {
			return fmt.Errorf("max retries (%d) exceeded for %s: %w", c.maxRetries, operation, err)
		}

		c.logger.Warn("metadata-fetch-failed-retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max-retries", c.maxRetries),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.backoffMultiplier)
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	return fmt.Errorf("unreachable")
}

// defaultMinOrderSize is used when the venue exposes no explicit
// minimum and a caller needs a conservative floor.
var defaultMinOrderSize = decimal.NewFromInt(5)

// MarketMetadata is the cached subset of a market's info this package
// cares about: its tick size and a venue-appropriate minimum order
// size, the two figures order sizing needs before placing a leg.
type MarketMetadata struct {
	MarketID     string
	MinTick      decimal.Decimal
	MinOrderSize decimal.Decimal
	FetchedAt    time.Time
}

// FetchMarketMetadata fetches a market's metadata with retry, falling
// back to conservative defaults if every attempt fails rather than
// blocking order placement on a metadata outage.
func (c *MetadataClient) FetchMarketMetadata(ctx context.Context, marketID string) (MarketMetadata, error) {
	start := time.Now()
	var fetchErr error
	defer func() {
		MetadataFetchDuration.Observe(time.Since(start).Seconds())
		if fetchErr != nil {
			MetadataFetchErrorsTotal.Inc()
		}
	}()

	var market types.Market
	fetchErr = c.fetchWithRetry(ctx, "fetch-market-info", func() error {
		m, err := c.fetcher.GetMarketInfo(ctx, marketID)
		if err != nil {
			return err
		}
		market = m
		return nil
	})
	if fetchErr != nil {
		return MarketMetadata{
			MarketID:     marketID,
			MinTick:      decimal.NewFromFloat(0.01),
			MinOrderSize: defaultMinOrderSize,
			FetchedAt:    time.Now(),
		}, fetchErr
	}

	minTick := market.MinTick
	if minTick.IsZero() {
		minTick = decimal.NewFromFloat(0.01)
	}

	return MarketMetadata{
		MarketID:     marketID,
		MinTick:      minTick,
		MinOrderSize: defaultMinOrderSize,
		FetchedAt:    time.Now(),
	}, nil
}
