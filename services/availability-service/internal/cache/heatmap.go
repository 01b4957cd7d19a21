// Package cache keeps computed heatmaps in Redis. Keys carry a per-event version so a rule change
// invalidates every cached range of that event with a single INCR.
//
// Callers read the version before loading the rules a heatmap is computed from and pass that same
// version to Get and Set. A heatmap computed from rules that changed meanwhile is then written under
// a version nobody reads anymore.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/overlap"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

type HeatmapCache interface {
	Version(ctx context.Context, eventID string) (int64, error)
	Get(ctx context.Context, eventID string, version int64, dr timerange.DateRange) (overlap.Heatmap, bool, error)
	Set(ctx context.Context, eventID string, version int64, dr timerange.DateRange, h overlap.Heatmap) error
	Invalidate(ctx context.Context, eventID string) error
}

type RedisHeatmapCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisHeatmapCache(rdb redis.Cmdable, ttl time.Duration) *RedisHeatmapCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisHeatmapCache{rdb: rdb, ttl: ttl}
}

func versionKey(eventID string) string {
	return "heatmap:" + eventID + ":version"
}

func heatmapKey(eventID string, version int64, dr timerange.DateRange) string {
	return fmt.Sprintf("heatmap:%s:v%d:%s:%s", eventID, version, dr.StartDate, dr.EndDate)
}

// Version returns the event's current cache version; 0 before the first invalidation.
func (c *RedisHeatmapCache) Version(ctx context.Context, eventID string) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (c *RedisHeatmapCache) Get(ctx context.Context, eventID string, version int64, dr timerange.DateRange) (overlap.Heatmap, bool, error) {
	raw, err := c.rdb.Get(ctx, heatmapKey(eventID, version, dr)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var h overlap.Heatmap
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, false, err
	}
	return h, true, nil
}

func (c *RedisHeatmapCache) Set(ctx context.Context, eventID string, version int64, dr timerange.DateRange, h overlap.Heatmap) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, heatmapKey(eventID, version, dr), raw, c.ttl).Err()
}

// Invalidate bumps the event's version. Entries under the old version expire on their own TTL.
func (c *RedisHeatmapCache) Invalidate(ctx context.Context, eventID string) error {
	return c.rdb.Incr(ctx, versionKey(eventID)).Err()
}

// Nop is used when no Redis is configured. Every Get misses.
type Nop struct{}

func (Nop) Version(context.Context, string) (int64, error) { return 0, nil }

func (Nop) Get(context.Context, string, int64, timerange.DateRange) (overlap.Heatmap, bool, error) {
	return nil, false, nil
}

func (Nop) Set(context.Context, string, int64, timerange.DateRange, overlap.Heatmap) error { return nil }

func (Nop) Invalidate(context.Context, string) error { return nil }

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
