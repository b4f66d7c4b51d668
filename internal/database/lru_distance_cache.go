package database

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"tour-planner/internal/metrics"
	"tour-planner/internal/models"
)

// LRUDistanceCache keeps recently used entries in memory in front of a
// slower DistanceCacheRepository. Writes go to both.
type LRUDistanceCache struct {
	next  DistanceCacheRepository
	cache *lru.Cache[string, models.DistanceCacheEntry]
}

// NewLRUDistanceCache wraps next with an in-memory cache of size entries.
func NewLRUDistanceCache(next DistanceCacheRepository, size int) (*LRUDistanceCache, error) {
	cache, err := lru.New[string, models.DistanceCacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRUDistanceCache{next: next, cache: cache}, nil
}

func (c *LRUDistanceCache) Get(ctx context.Context, origin, dest models.Coordinates) (*models.DistanceCacheEntry, error) {
	key := CacheKey(origin, dest)
	if entry, ok := c.cache.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("lru", "hit").Inc()
		return &entry, nil
	}
	metrics.CacheLookups.WithLabelValues("lru", "miss").Inc()

	entry, err := c.next.Get(ctx, origin, dest)
	if err != nil || entry == nil {
		return entry, err
	}
	c.cache.Add(key, *entry)
	return entry, nil
}

func (c *LRUDistanceCache) GetBatch(ctx context.Context, pairs []CoordinatePair) (map[string]*models.DistanceCacheEntry, error) {
	result := make(map[string]*models.DistanceCacheEntry, len(pairs))
	var missing []CoordinatePair
	for _, pair := range pairs {
		key := CacheKey(pair.Origin, pair.Dest)
		if entry, ok := c.cache.Get(key); ok {
			result[key] = &entry
			continue
		}
		missing = append(missing, pair)
	}
	if len(missing) == 0 {
		return result, nil
	}

	found, err := c.next.GetBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for key, entry := range found {
		c.cache.Add(key, *entry)
		result[key] = entry
	}
	return result, nil
}

func (c *LRUDistanceCache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	if err := c.next.Set(ctx, entry); err != nil {
		return err
	}
	c.cache.Add(CacheKey(entry.Origin, entry.Destination), *entry)
	return nil
}

func (c *LRUDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	if err := c.next.SetBatch(ctx, entries); err != nil {
		return err
	}
	for _, entry := range entries {
		c.cache.Add(CacheKey(entry.Origin, entry.Destination), entry)
	}
	return nil
}

func (c *LRUDistanceCache) Clear(ctx context.Context) error {
	c.cache.Purge()
	return c.next.Clear(ctx)
}
