package markets

import (
	"context"
	"fmt"
	"time"

	"github.com/biserd/completeset-arb/pkg/cache"
	"github.com/shopspring/decimal"
)

// CachedMetadataClient wraps MetadataClient with a TTL cache so
// repeated lookups for the same market (every order placement checks
// tick size) don't each cost a round trip to the venue.
type CachedMetadataClient struct {
	client *MetadataClient
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedMetadataClient builds a CachedMetadataClient. Metadata is
// cached for 24 hours: tick size and minimum order size change rarely
// enough that a day-old value is still safe to trade on.
func NewCachedMetadataClient(client *MetadataClient, cache cache.Cache) *CachedMetadataClient {
	return &CachedMetadataClient{
		client: client,
		cache:  cache,
		ttl:    24 * time.Hour,
	}
}

func cacheKey(marketID string) string {
	return fmt.Sprintf("metadata:%s", marketID)
}

// GetMarketMetadata returns a market's tick size and minimum order
// size, serving from cache when available.
func (c *CachedMetadataClient) GetMarketMetadata(ctx context.Context, marketID string) (MarketMetadata, error) {
	key := cacheKey(marketID)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if meta, ok := cached.(MarketMetadata); ok {
				MetadataCacheHitsTotal.Inc()
				return meta, nil
			}
		}
		MetadataCacheMissesTotal.Inc()
	}

	meta, err := c.client.FetchMarketMetadata(ctx, marketID)
	if err != nil {
		return meta, err
	}

	if c.cache != nil {
		c.cache.Set(key, meta, c.ttl)
	}
	return meta, nil
}

// UpdateTickSize overwrites a cached market's tick size without a
// refetch, for when a tick_size_change feed event arrives and the rest
// of the cached metadata is still valid. A no-op if the market isn't
// cached yet; it will simply be fetched fresh on next access.
func (c *CachedMetadataClient) UpdateTickSize(marketID string, newTickSize decimal.Decimal) {
	if c.cache == nil {
		return
	}
	key := cacheKey(marketID)
	if cached, ok := c.cache.Get(key); ok {
		if meta, ok := cached.(MarketMetadata); ok {
			meta.MinTick = newTickSize
			meta.FetchedAt = time.Now()
			c.cache.Set(key, meta, c.ttl)
		}
	}
}
