// Package distance builds distance matrices from a routing provider,
// consulting a per-pair cache first and archiving raw provider responses.
package distance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-planner/internal/matrix"
	"tour-planner/internal/models"
)

// Provider request limits. A single request may carry at most MaxElements
// origin/destination pairs and at most MaxOrigins origins or destinations.
const (
	MaxElements = 100
	MaxOrigins  = 25
	DefaultStep = 10
)

// ErrInvalidStep is returned for a partition step the provider cannot accept
var ErrInvalidStep = errors.New("invalid partition step")

// DistanceResult contains the result of a distance calculation
type DistanceResult struct {
	DistanceMeters float64
	DurationSecs   float64
}

// DistanceCalculator provides distance calculations between coordinates
type DistanceCalculator interface {
	GetDistance(ctx context.Context, origin, dest models.Coordinates) (*DistanceResult, error)
	// GetDistanceMatrix returns whole meters between every ordered pair of
	// points. Pairs the provider could not route are left unknown.
	GetDistanceMatrix(ctx context.Context, points []models.Coordinates) (*matrix.Matrix, error)
}

// ErrDistanceCalculationFailed is returned when the provider API fails
type ErrDistanceCalculationFailed struct {
	Origin models.Coordinates
	Dest   models.Coordinates
	Reason string
}

func (e *ErrDistanceCalculationFailed) Error() string {
	return fmt.Sprintf("distance calculation failed: %s", e.Reason)
}

// Options tunes request partitioning and pacing.
type Options struct {
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Step is the side of each requested block.
	Step int
	// Concurrency bounds in-flight block requests.
	Concurrency int
	// RequestsPerSecond paces block requests; zero disables pacing.
	RequestsPerSecond float64
	// Timeout applies to each HTTP request.
	Timeout time.Duration
}

// DefaultOptions returns the partitioning used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Step:              DefaultStep,
		Concurrency:       4,
		RequestsPerSecond: 10,
		Timeout:           30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Step == 0 {
		o.Step = d.Step
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}
