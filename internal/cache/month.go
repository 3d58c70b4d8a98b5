// Package cache stores built month grids in redis. Keys carry the snapshot
// version, so a reload never serves a grid built from older data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"isomero/internal/metrics"
	"isomero/internal/model"
)

type MonthCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewMonthCache returns a cache over client. A nil client or a non-positive
// ttl disables caching.
func NewMonthCache(client *redis.Client, ttl time.Duration) *MonthCache {
	return &MonthCache{redis: client, ttl: ttl}
}

// Key identifies one grid: the same month looks different on another today.
func Key(version string, loc model.Location, month string, today time.Time) string {
	return fmt.Sprintf("calendar:%s:%s:%s:%s", version, loc, month, today.Format(model.DateLayout))
}

func (c *MonthCache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

// Get returns the cached grid for key, if any.
func (c *MonthCache) Get(ctx context.Context, key string) ([]model.DayView, bool) {
	if !c.enabled() {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		metrics.IncCalendarCache(false)
		return nil, false
	}
	var views []model.DayView
	if err := json.Unmarshal([]byte(val), &views); err != nil {
		metrics.IncCalendarCache(false)
		return nil, false
	}
	metrics.IncCalendarCache(true)
	return views, true
}

func (c *MonthCache) Set(ctx context.Context, key string, views []model.DayView) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(views)
	if err != nil {
		metrics.IncCalendarCacheError()
		zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("Failed to encode calendar for cache")
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		metrics.IncCalendarCacheError()
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Failed to write calendar cache")
	}
}
