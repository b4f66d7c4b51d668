package tsp

import (
	"context"
	"fmt"
	"time"

	"tour-planner/internal/ilp"
	"tour-planner/internal/matrix"
)

// SolveWalk returns a minimum-cost closed walk that visits every node at
// least once. Unknown distances are replaced by shortest known routes, the
// tour is solved on that closure, and each leg is expanded back into the
// nodes it passes through. Sequence may therefore repeat nodes; Stops holds
// the first-visit order.
func (s *Solver) SolveWalk(ctx context.Context, m *matrix.Matrix) (*Result, error) {
	start := time.Now()
	res, err := s.solveWalk(ctx, m)
	observe("walk", res, err, start)
	return res, err
}

func (s *Solver) solveWalk(ctx context.Context, m *matrix.Matrix) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMatrix, err)
	}
	if m.Size() == 1 {
		return &Result{Sequence: []int{0}, Stops: []int{0}, Status: ilp.StatusOptimal}, nil
	}
	if !m.StronglyConnected() {
		return nil, fmt.Errorf("%w: %w: some node cannot reach every other node",
			ErrMalformedMatrix, ErrInfeasible)
	}

	closed, next := m.Closure()
	res, err := s.solveTour(ctx, closed, false)
	if err != nil {
		return nil, err
	}

	walk := make([]int, 0, len(res.Sequence))
	for k, from := range res.Sequence {
		to := res.Sequence[(k+1)%len(res.Sequence)]
		leg := matrix.Route(next, from, to)
		if leg == nil {
			return nil, fmt.Errorf("%w: no route %d→%d in closure", ErrSolver, from, to)
		}
		walk = append(walk, leg[:len(leg)-1]...)
	}
	res.Stops = res.Sequence
	res.Sequence = walk
	return res, nil
}
