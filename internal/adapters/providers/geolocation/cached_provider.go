package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/hospitrack/backend/internal/domain/providers"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
)

const geocodeCacheName = "geocode"

// CachedGeolocationProvider memoizes successful lookups of another provider.
// Failures are never cached so a transient outage does not stick.
type CachedGeolocationProvider struct {
	next    providers.GeolocationProvider
	cache   providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedGeolocationProvider wraps next with cache
func NewCachedGeolocationProvider(next providers.GeolocationProvider, cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) providers.GeolocationProvider {
	return &CachedGeolocationProvider{
		next:    next,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
	}
}

// Geocode returns a cached result or delegates to the wrapped provider
func (c *CachedGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	key := cacheKey(address)

	if cached, err := c.cache.Get(ctx, key); err == nil && len(cached) > 0 {
		var addr providers.GeocodedAddress
		if err := json.Unmarshal(cached, &addr); err == nil {
			observability.RecordCacheHit(ctx, c.metrics, geocodeCacheName)
			return &addr, nil
		}
	}
	observability.RecordCacheMiss(ctx, c.metrics, geocodeCacheName)

	addr, err := c.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(addr); err == nil {
		if err := c.cache.Set(ctx, key, payload, int(c.ttl.Seconds())); err != nil {
			observability.LoggerFromContext(ctx).Debug().Err(err).Msg("failed to cache geocode result")
		}
	}
	return addr, nil
}

// cacheKey normalizes the address so that case and surrounding whitespace
// do not create separate entries.
func cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return "geo:v1:geocode:" + hex.EncodeToString(sum[:])
}
