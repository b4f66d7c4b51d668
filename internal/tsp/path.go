package tsp

import (
	"context"
	"fmt"
	"time"

	"tour-planner/internal/ilp"
	"tour-planner/internal/matrix"
)

// SolvePath returns a minimum-cost open path visiting every node once.
// The endpoints are free: a phantom node at zero distance from every node
// closes the path into a tour, which is then cut at the phantom.
func (s *Solver) SolvePath(ctx context.Context, m *matrix.Matrix) (*Result, error) {
	start := time.Now()
	res, err := s.solvePath(ctx, m)
	observe("path", res, err, start)
	return res, err
}

func (s *Solver) solvePath(ctx context.Context, m *matrix.Matrix) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMatrix, err)
	}
	n := m.Size()
	if n == 1 {
		return &Result{Sequence: []int{0}, Status: ilp.StatusOptimal}, nil
	}

	// The phantom links every node both ways, so the augmented graph is
	// always strongly connected; path existence is left to the program.
	res, err := s.solveTour(ctx, m.WithPhantom(), false)
	if err != nil {
		return nil, err
	}
	path, err := cutAtPhantom(res.Sequence, n)
	if err != nil {
		return nil, err
	}
	res.Sequence = path
	return res, nil
}

// cutAtPhantom reads the tour after the phantom, wrapping around, and stops
// before reaching it again.
func cutAtPhantom(tour []int, phantom int) ([]int, error) {
	at := -1
	for k, v := range tour {
		if v == phantom {
			at = k
			break
		}
	}
	if at < 0 {
		return nil, fmt.Errorf("%w: tour %v does not visit the phantom node %d", ErrSolver, tour, phantom)
	}
	path := make([]int, 0, len(tour)-1)
	path = append(path, tour[at+1:]...)
	path = append(path, tour[:at]...)
	return path, nil
}
