package database

import (
	"context"

	"tour-planner/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	DistanceCache() DistanceCacheRepository
	SolveRuns() SolveRunRepository
}

// CoordinatePair is one directed origin/destination lookup
type CoordinatePair struct {
	Origin models.Coordinates
	Dest   models.Coordinates
}

// DistanceCacheRepository handles distance cache persistence.
// Get returns nil, nil on a miss.
type DistanceCacheRepository interface {
	Get(ctx context.Context, origin, dest models.Coordinates) (*models.DistanceCacheEntry, error)
	GetBatch(ctx context.Context, pairs []CoordinatePair) (map[string]*models.DistanceCacheEntry, error)
	Set(ctx context.Context, entry *models.DistanceCacheEntry) error
	SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error
	Clear(ctx context.Context) error
}

// SolveRunRepository handles solve history persistence
type SolveRunRepository interface {
	// Create assigns an ID and creation time when they are empty
	Create(ctx context.Context, run *models.SolveRun) (*models.SolveRun, error)
	GetByID(ctx context.Context, id string) (*models.SolveRun, error)
	// List returns the newest runs first; an empty kind matches every kind
	List(ctx context.Context, kind models.SolveKind, limit int) ([]models.SolveRun, error)
}
