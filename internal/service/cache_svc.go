package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/model"
)

// StatsCacheTTL keeps cached distributions slightly behind real time; the
// client refresh interval is 10s, so a longer TTL would only add staleness.
const StatsCacheTTL = 10 * time.Second

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engage_stats_cache_hits_total",
		Help: "Total Redis stats cache hits.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engage_stats_cache_misses_total",
		Help: "Total Redis stats cache misses.",
	})
)

// CacheService provides a Redis cache-aside layer for block statistics.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService creates a new CacheService. If redisURL is empty or the
// connection fails, it returns a CacheService with a nil client (cache
// operations become no-ops).
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Str("url", redisURL).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetStats retrieves cached block stats. Returns ok=false on miss or when
// the cache is disabled.
func (c *CacheService) GetStats(ctx context.Context, articleID, blockID string) (model.InteractionStats, bool) {
	if c.rdb == nil {
		return model.InteractionStats{}, false
	}
	data, err := c.rdb.Get(ctx, statsKey(articleID, blockID)).Bytes()
	if err != nil {
		cacheMisses.Inc()
		return model.InteractionStats{}, false
	}
	var stats model.InteractionStats
	if err := json.Unmarshal(data, &stats); err != nil {
		cacheMisses.Inc()
		return model.InteractionStats{}, false
	}
	if stats.Distribution == nil {
		stats.Distribution = map[string]int64{}
	}
	cacheHits.Inc()
	return stats, true
}

// SetStats stores block stats with the standard TTL.
func (c *CacheService) SetStats(ctx context.Context, articleID, blockID string, stats model.InteractionStats) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey(articleID, blockID), b, StatsCacheTTL).Err()
}

// InvalidateStats removes a block's stats from cache (called after writes).
func (c *CacheService) InvalidateStats(ctx context.Context, articleID, blockID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, statsKey(articleID, blockID)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func statsKey(articleID, blockID string) string {
	return fmt.Sprintf("stats:%s:%s", articleID, blockID)
}
