package testutil

import (
	"context"
	"math"
	"sync"

	"tour-planner/internal/database"
	"tour-planner/internal/distance"
	"tour-planner/internal/matrix"
	"tour-planner/internal/models"
)

// DistanceCall tracks a call to the distance calculator
type DistanceCall struct {
	Origin models.Coordinates
	Dest   models.Coordinates
}

// MockDistanceCalculator is a mock implementation for testing.
// It calculates Euclidean distance (scaled) between coordinates for deterministic tests.
type MockDistanceCalculator struct {
	ScaleFactor float64
	Overrides   map[string]*distance.DistanceResult
	// Unroutable pairs are reported as unknown in matrices
	Unroutable map[string]bool
	// Err, when set, is returned by every call
	Err   error
	Calls []DistanceCall
}

func NewMockDistanceCalculator() *MockDistanceCalculator {
	return &MockDistanceCalculator{
		ScaleFactor: 111000, // 1 degree ≈ 111km in meters
		Overrides:   make(map[string]*distance.DistanceResult),
		Unroutable:  make(map[string]bool),
		Calls:       []DistanceCall{},
	}
}

// SetDistance sets a custom distance for a specific origin-destination pair
func (m *MockDistanceCalculator) SetDistance(origin, dest models.Coordinates, distMeters, durSecs float64) {
	m.Overrides[database.CacheKey(origin, dest)] = &distance.DistanceResult{
		DistanceMeters: distMeters,
		DurationSecs:   durSecs,
	}
}

// SetUnroutable marks a pair as having no route
func (m *MockDistanceCalculator) SetUnroutable(origin, dest models.Coordinates) {
	m.Unroutable[database.CacheKey(origin, dest)] = true
}

// euclideanDistance calculates scaled Euclidean distance between two coordinates
func (m *MockDistanceCalculator) euclideanDistance(origin, dest models.Coordinates) float64 {
	dLat := dest.Lat - origin.Lat
	dLng := dest.Lng - origin.Lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * m.ScaleFactor
}

// GetDistance returns the distance between two points
func (m *MockDistanceCalculator) GetDistance(ctx context.Context, origin, dest models.Coordinates) (*distance.DistanceResult, error) {
	m.Calls = append(m.Calls, DistanceCall{Origin: origin, Dest: dest})
	if m.Err != nil {
		return nil, m.Err
	}

	key := database.CacheKey(origin, dest)
	if override, ok := m.Overrides[key]; ok {
		return override, nil
	}
	if m.Unroutable[key] {
		return nil, &distance.ErrDistanceCalculationFailed{Origin: origin, Dest: dest, Reason: "no route"}
	}

	// Same point = 0 distance
	if models.RoundCoordinate(origin.Lat) == models.RoundCoordinate(dest.Lat) &&
		models.RoundCoordinate(origin.Lng) == models.RoundCoordinate(dest.Lng) {
		return &distance.DistanceResult{}, nil
	}

	dist := m.euclideanDistance(origin, dest)
	// Assume average speed of 50 km/h for duration
	dur := dist / 50000 * 3600

	return &distance.DistanceResult{
		DistanceMeters: dist,
		DurationSecs:   dur,
	}, nil
}

// GetDistanceMatrix returns a matrix of rounded meters between all pairs of points
func (m *MockDistanceCalculator) GetDistanceMatrix(ctx context.Context, points []models.Coordinates) (*matrix.Matrix, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out, err := matrix.New(len(points))
	if err != nil {
		return nil, err
	}
	for i := range points {
		for j := range points {
			if i == j {
				_ = out.Set(i, j, 0)
				continue
			}
			if m.Unroutable[database.CacheKey(points[i], points[j])] {
				continue
			}
			result, err := m.GetDistance(ctx, points[i], points[j])
			if err != nil {
				return nil, err
			}
			_ = out.Set(i, j, int64(math.Round(result.DistanceMeters)))
		}
	}
	return out, nil
}

// ResetCalls clears the recorded calls
func (m *MockDistanceCalculator) ResetCalls() {
	m.Calls = []DistanceCall{}
}

// MockDistanceCache is a mock implementation of DistanceCacheRepository for testing
type MockDistanceCache struct {
	mu      sync.Mutex
	entries map[string]*models.DistanceCacheEntry
	// Lookups counts pairs asked for through Get and GetBatch
	Lookups int
}

func NewMockDistanceCache() *MockDistanceCache {
	return &MockDistanceCache{
		entries: make(map[string]*models.DistanceCacheEntry),
	}
}

func (c *MockDistanceCache) Get(ctx context.Context, origin, dest models.Coordinates) (*models.DistanceCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Lookups++
	if entry, ok := c.entries[database.CacheKey(origin, dest)]; ok {
		return entry, nil
	}
	return nil, nil
}

func (c *MockDistanceCache) GetBatch(ctx context.Context, pairs []database.CoordinatePair) (map[string]*models.DistanceCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]*models.DistanceCacheEntry)
	for _, pair := range pairs {
		c.Lookups++
		key := database.CacheKey(pair.Origin, pair.Dest)
		if entry, ok := c.entries[key]; ok {
			result[key] = entry
		}
	}
	return result, nil
}

func (c *MockDistanceCache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	return c.SetBatch(ctx, []models.DistanceCacheEntry{*entry})
}

func (c *MockDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range entries {
		e := entries[i]
		c.entries[database.CacheKey(e.Origin, e.Destination)] = &e
	}
	return nil
}

func (c *MockDistanceCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*models.DistanceCacheEntry)
	return nil
}

// Count returns the number of entries in the cache
func (c *MockDistanceCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Seed stores a distance for a pair without counting a lookup
func (c *MockDistanceCache) Seed(origin, dest models.Coordinates, meters float64) {
	_ = c.SetBatch(context.Background(), []models.DistanceCacheEntry{{Origin: origin, Destination: dest, DistanceMeters: meters}})
}

var _ database.DistanceCacheRepository = (*MockDistanceCache)(nil)
var _ distance.DistanceCalculator = (*MockDistanceCalculator)(nil)

