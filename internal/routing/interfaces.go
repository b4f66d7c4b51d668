package routing

import (
	"context"
	"fmt"

	"tour-planner/internal/matrix"
)

// Tour is a closed visiting order starting at node 0.
type Tour struct {
	Order []int
	Cost  int64
}

// TourBuilder produces a feasible closed tour quickly, without any
// optimality guarantee.
type TourBuilder interface {
	BuildTour(ctx context.Context, m *matrix.Matrix) (*Tour, error)
}

// ErrRoutingFailed is returned when no tour could be built
type ErrRoutingFailed struct {
	Reason string
}

func (e *ErrRoutingFailed) Error() string {
	return fmt.Sprintf("routing failed: %s", e.Reason)
}
