package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"tour-planner/internal/metrics"
	"tour-planner/internal/models"
)

// FileDistanceCacheData represents the structure of the cache file
type FileDistanceCacheData struct {
	Entries []models.DistanceCacheEntry `json:"entries"`
}

// FileDistanceCache is a file-based implementation of DistanceCacheRepository
type FileDistanceCache struct {
	filePath string
	data     *FileDistanceCacheData
	index    map[string]int // key -> position in Entries
	mu       sync.RWMutex
}

// NewFileDistanceCache opens the cache file at filePath, creating it if
// needed. An empty path uses ~/.tour-planner/cache/distances.json.
func NewFileDistanceCache(filePath string) (*FileDistanceCache, error) {
	if filePath == "" {
		var err error
		filePath, err = GetDistanceCachePath()
		if err != nil {
			return nil, fmt.Errorf("failed to get cache file path: %w", err)
		}
	}
	log.Printf("[CACHE] Using distance cache file: %s", filePath)

	cache := &FileDistanceCache{
		filePath: filePath,
		data:     &FileDistanceCacheData{Entries: []models.DistanceCacheEntry{}},
		index:    make(map[string]int),
	}

	if err := cache.load(); err != nil {
		return nil, err
	}

	return cache, nil
}

func (c *FileDistanceCache) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		c.data = &FileDistanceCacheData{Entries: []models.DistanceCacheEntry{}}
		return c.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	if err := json.Unmarshal(data, c.data); err != nil {
		return fmt.Errorf("failed to parse cache file: %w", err)
	}
	if c.data.Entries == nil {
		c.data.Entries = []models.DistanceCacheEntry{}
	}
	c.rebuildIndex()

	log.Printf("[CACHE] Loaded distance cache: %d entries", len(c.data.Entries))
	return nil
}

func (c *FileDistanceCache) saveUnlocked() error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	tmpFile := c.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmpFile, c.filePath); err != nil {
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

// Len returns the number of cached pairs.
func (c *FileDistanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data.Entries)
}

func (c *FileDistanceCache) Get(ctx context.Context, origin, dest models.Coordinates) (*models.DistanceCacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.index != nil {
		if idx, ok := c.index[CacheKey(origin, dest)]; ok {
			// Copy so callers cannot modify cache data without the lock
			entryCopy := c.data.Entries[idx]
			metrics.CacheLookups.WithLabelValues("file", "hit").Inc()
			return &entryCopy, nil
		}
		metrics.CacheLookups.WithLabelValues("file", "miss").Inc()
		return nil, nil
	}

	for _, e := range c.data.Entries {
		if coordsMatch(e.Origin, origin) && coordsMatch(e.Destination, dest) {
			entryCopy := e
			metrics.CacheLookups.WithLabelValues("file", "hit").Inc()
			return &entryCopy, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("file", "miss").Inc()
	return nil, nil
}

func (c *FileDistanceCache) GetBatch(ctx context.Context, pairs []CoordinatePair) (map[string]*models.DistanceCacheEntry, error) {
	result := make(map[string]*models.DistanceCacheEntry)
	for _, pair := range pairs {
		entry, err := c.Get(ctx, pair.Origin, pair.Dest)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			result[CacheKey(pair.Origin, pair.Dest)] = entry
		}
	}
	return result, nil
}

func (c *FileDistanceCache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	return c.SetBatch(ctx, []models.DistanceCacheEntry{*entry})
}

func (c *FileDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		c.rebuildIndex()
	}

	for _, entry := range entries {
		key := CacheKey(entry.Origin, entry.Destination)
		if idx, ok := c.index[key]; ok {
			c.data.Entries[idx] = entry
		} else {
			c.data.Entries = append(c.data.Entries, entry)
			c.index[key] = len(c.data.Entries) - 1
		}
	}

	return c.saveUnlocked()
}

func (c *FileDistanceCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Entries = []models.DistanceCacheEntry{}
	c.index = make(map[string]int)
	return c.saveUnlocked()
}

// rebuildIndex creates the index map from the current entries slice.
// Must be called with the mutex already held.
func (c *FileDistanceCache) rebuildIndex() {
	c.index = make(map[string]int)
	for i := range c.data.Entries {
		c.index[CacheKey(c.data.Entries[i].Origin, c.data.Entries[i].Destination)] = i
	}
}
