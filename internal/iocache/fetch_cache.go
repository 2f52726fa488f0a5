package iocache

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/logging"
	"github.com/huangsam/injuryscope/internal/metrics"
	"github.com/huangsam/injuryscope/schema"
)

// fetchCacheVersion is bumped whenever a cached payload changes shape.
const fetchCacheVersion = 1

// CachedFetcher decorates a PageFetcher with the fetch cache. Hits skip the
// network and its pacing delay. Failures are never cached.
type CachedFetcher struct {
	next     contract.PageFetcher
	store    contract.CacheStore
	recorder *metrics.Recorder
	logger   *logging.Logger
	now      func() time.Time
}

var _ contract.PageFetcher = &CachedFetcher{} // Compile-time check

// NewCachedFetcher wraps next. A nil store returns next unchanged.
func NewCachedFetcher(next contract.PageFetcher, store contract.CacheStore, recorder *metrics.Recorder, logger *logging.Logger) contract.PageFetcher {
	if store == nil {
		return next
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedFetcher{next: next, store: store, recorder: recorder, logger: logger, now: time.Now}
}

// FetchFixtures returns cached fixtures or fetches and caches them.
func (c *CachedFetcher) FetchFixtures(ctx context.Context, team, season string) ([]schema.Fixture, error) {
	return cached(c, cacheKey(metrics.KindFixtures, team, season), metrics.KindFixtures, func() ([]schema.Fixture, error) {
		return c.next.FetchFixtures(ctx, team, season)
	})
}

// FetchMatchLog returns a cached match log or fetches and caches it.
func (c *CachedFetcher) FetchMatchLog(ctx context.Context, playerURL, season string) ([]schema.MatchObservation, error) {
	return cached(c, cacheKey(metrics.KindMatchLog, playerURL, season), metrics.KindMatchLog, func() ([]schema.MatchObservation, error) {
		return c.next.FetchMatchLog(ctx, playerURL, season)
	})
}

// FetchSeasonTotals returns cached season totals or fetches and caches them.
func (c *CachedFetcher) FetchSeasonTotals(ctx context.Context, playerURL, season string) (schema.SeasonTotals, error) {
	return cached(c, cacheKey(metrics.KindTotals, playerURL, season), metrics.KindTotals, func() (schema.SeasonTotals, error) {
		return c.next.FetchSeasonTotals(ctx, playerURL, season)
	})
}

// cacheKey builds kind:subject:season.
func cacheKey(kind, subject, season string) string {
	return strings.Join([]string{kind, subject, season}, ":")
}

// cached reads key from the store and falls back to fetch on any miss. A
// store error is logged and treated as a miss.
func cached[T any](c *CachedFetcher, key, kind string, fetch func() (T, error)) (T, error) {
	if value, version, _, err := c.store.Get(key); err == nil && version == fetchCacheVersion {
		var out T
		if err := sonic.Unmarshal(value, &out); err == nil {
			c.recorder.Fetch(kind, metrics.ResultCache, 0)
			return out, nil
		}
		c.logger.Warn("discarding unreadable cache entry", "key", key)
	}

	out, err := fetch()
	if err != nil {
		return out, err
	}

	payload, err := sonic.Marshal(out)
	if err != nil {
		c.logger.Warn("cannot encode fetch result", "key", key, "error", err)
		return out, nil
	}
	if err := c.store.Set(key, payload, fetchCacheVersion, c.now().Unix()); err != nil {
		c.logger.Warn("cannot write fetch cache", "key", key, "error", err)
	}
	return out, nil
}
