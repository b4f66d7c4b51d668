package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tour-planner/internal/metrics"
	"tour-planner/internal/models"
)

const redisKeyPrefix = "tourplan:distance:"

// RedisDistanceCache stores entries as JSON strings under
// "tourplan:distance:<pair key>", shared between server instances.
type RedisDistanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDistanceCache connects to the Redis server at url
// (redis://[:password@]host:port/db). ttl of zero keeps entries forever.
func NewRedisDistanceCache(ctx context.Context, url string, ttl time.Duration) (*RedisDistanceCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Printf("[CACHE] Using redis distance cache: addr=%s db=%d ttl=%v", opt.Addr, opt.DB, ttl)
	return &RedisDistanceCache{rdb: rdb, ttl: ttl}, nil
}

// Close closes the client.
func (c *RedisDistanceCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisDistanceCache) Get(ctx context.Context, origin, dest models.Coordinates) (*models.DistanceCacheEntry, error) {
	data, err := c.rdb.Get(ctx, redisKeyPrefix+CacheKey(origin, dest)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry models.DistanceCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	metrics.CacheLookups.WithLabelValues("redis", "hit").Inc()
	return &entry, nil
}

func (c *RedisDistanceCache) GetBatch(ctx context.Context, pairs []CoordinatePair) (map[string]*models.DistanceCacheEntry, error) {
	result := make(map[string]*models.DistanceCacheEntry)
	if len(pairs) == 0 {
		return result, nil
	}

	keys := make([]string, len(pairs))
	for i, pair := range pairs {
		keys[i] = redisKeyPrefix + CacheKey(pair.Origin, pair.Dest)
	}
	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entries: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.DistanceCacheEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode cache entry: %w", err)
		}
		result[CacheKey(pairs[i].Origin, pairs[i].Dest)] = &entry
	}
	return result, nil
}

func (c *RedisDistanceCache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	return c.SetBatch(ctx, []models.DistanceCacheEntry{*entry})
}

func (c *RedisDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode cache entry: %w", err)
		}
		pipe.Set(ctx, redisKeyPrefix+CacheKey(entry.Origin, entry.Destination), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set cache entries: %w", err)
	}
	return nil
}

func (c *RedisDistanceCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
