package weather

import (
	"context"
	"time"

	"weather-lookup/internal/metrics"
	"weather-lookup/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// DefaultCacheTTL is how long a forecast is served from memory.
const DefaultCacheTTL = 10 * time.Second

// FetchFunc produces a fresh forecast on a cache miss.
type FetchFunc func(ctx context.Context) (*models.Forecast, error)

// ForecastCache keeps shaped forecasts per postal code for a short TTL.
// Expiry is passive: stale entries are only replaced by the next miss.
// Cached forecasts are shared between callers and must not be mutated.
type ForecastCache struct {
	ttl     time.Duration
	items   *cache.Cache
	metrics *metrics.Metrics
}

// NewForecastCache creates a cache; a non-positive ttl selects DefaultCacheTTL.
func NewForecastCache(ttl time.Duration, m *metrics.Metrics) *ForecastCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ForecastCache{
		ttl: ttl,
		// A zero cleanup interval disables the background janitor.
		items:   cache.New(ttl, 0),
		metrics: m,
	}
}

// GetOrFetch returns the cached forecast for zip when one is still fresh and
// reports hit=true. Otherwise it calls fetch, stores the result and reports
// hit=false. Failed fetches are not cached. Concurrent misses for the same zip
// may each call fetch.
func (c *ForecastCache) GetOrFetch(ctx context.Context, zip string, fetch FetchFunc) (forecast *models.Forecast, hit bool, err error) {
	key := cacheKey(zip)
	if v, found := c.items.Get(key); found {
		if f, ok := v.(*models.Forecast); ok {
			c.metrics.ForecastCache.WithLabelValues("hit").Inc()
			log.Debug().Str("zip", zip).Msg("forecast cache hit")
			return f, true, nil
		}
	}
	c.metrics.ForecastCache.WithLabelValues("miss").Inc()

	f, err := fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	f.Zip = zip
	f.ExpiresAt = time.Now().Add(c.ttl)
	c.items.Set(key, f, cache.DefaultExpiration)

	log.Debug().Str("zip", zip).Time("expires_at", f.ExpiresAt).Msg("forecast cached")
	return f, false, nil
}

func cacheKey(zip string) string {
	return "weather_forecast_" + zip
}
