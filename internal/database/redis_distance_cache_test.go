package database

import (
	"context"
	"os"
	"testing"
	"time"

	"tour-planner/internal/models"
)

// Set TOURPLAN_TEST_REDIS_URL (e.g. redis://localhost:6379/15) to run
// against a live server. The database is cleared of tourplan keys.
func newTestRedisCache(t *testing.T) *RedisDistanceCache {
	t.Helper()
	url := os.Getenv("TOURPLAN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TOURPLAN_TEST_REDIS_URL not set")
	}
	cache, err := NewRedisDistanceCache(context.Background(), url, time.Minute)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Clear(context.Background())
		_ = cache.Close()
	})
	return cache
}

func TestRedisDistanceCache_RoundTrip(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	a := models.Coordinates{Lat: 1, Lng: 1}
	b := models.Coordinates{Lat: 2, Lng: 2}
	if err := cache.Set(ctx, &models.DistanceCacheEntry{Origin: a, Destination: b, DistanceMeters: 12}); err != nil {
		t.Fatalf("set: %v", err)
	}

	entry, err := cache.Get(ctx, a, b)
	if err != nil || entry == nil || entry.DistanceMeters != 12 {
		t.Fatalf("expected 12, got %+v err=%v", entry, err)
	}

	found, err := cache.GetBatch(ctx, []CoordinatePair{{Origin: a, Dest: b}, {Origin: b, Dest: a}})
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("expected 1 hit, got %d", len(found))
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entry, err = cache.Get(ctx, a, b)
	if err != nil || entry != nil {
		t.Errorf("expected miss after clear, got %+v err=%v", entry, err)
	}
}

func TestNewRedisDistanceCache_BadURL(t *testing.T) {
	if _, err := NewRedisDistanceCache(context.Background(), "not-a-url", 0); err == nil {
		t.Error("expected error for invalid url")
	}
}
