// Package tsp finds minimum-cost tours, open paths and walks over a distance
// matrix with unknown entries. Tours are found by solving the assignment
// program repeatedly, adding a cut for every subtour of the previous
// solution until it decodes into a single cycle.
package tsp

import (
	"context"
	"fmt"
	"log"
	"time"

	"tour-planner/internal/ilp"
	"tour-planner/internal/matrix"
	"tour-planner/internal/metrics"
	"tour-planner/internal/routing"
)

// Options tunes a Solver.
type Options struct {
	// Timeout bounds one solve. Zero means no limit beyond the context.
	Timeout time.Duration
	// MaxIterations caps the subtour-elimination rounds. Zero means no cap.
	MaxIterations int
	// WarmStart seeds every integer program with a heuristic tour.
	WarmStart bool
}

// Result is a successful solve.
type Result struct {
	Status    ilp.Status
	Objective int64
	// Sequence is the tour, the path or the expanded walk.
	Sequence []int
	// Stops is the first-visit order of a walk. Nil for tours and paths.
	Stops      []int
	Iterations int
	// Subtours are the cuts accumulated before the final iteration.
	Subtours [][]int
}

// Solver runs the subtour-elimination loop on top of an ilp.Solver.
// A Solver holds no per-solve state and is safe for concurrent use.
type Solver struct {
	backend ilp.Solver
	warm    routing.TourBuilder
	opts    Options
}

// NewSolver creates a Solver over backend.
func NewSolver(backend ilp.Solver, opts Options) *Solver {
	s := &Solver{backend: backend, opts: opts}
	if opts.WarmStart {
		s.warm = routing.NewTwoOptBuilder(0)
	}
	return s
}

// SolveTour returns a minimum-cost closed tour starting at node 0.
func (s *Solver) SolveTour(ctx context.Context, m *matrix.Matrix) (*Result, error) {
	start := time.Now()
	res, err := s.solveTour(ctx, m, true)
	observe("tour", res, err, start)
	return res, err
}

func (s *Solver) solveTour(ctx context.Context, m *matrix.Matrix, checkConnected bool) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMatrix, err)
	}
	d := m.Clone()
	n := d.Size()
	if n == 1 {
		return &Result{Status: ilp.StatusOptimal, Sequence: []int{0}}, nil
	}
	if checkConnected && !d.StronglyConnected() {
		return nil, fmt.Errorf("%w: %w: known edges form %d strongly connected components",
			ErrMalformedMatrix, ErrInfeasible, len(d.Components()))
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var warm []int
	if s.warm != nil {
		tour, err := s.warm.BuildTour(ctx, d)
		switch {
		case err == nil:
			warm = routing.Successors(tour.Order)
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %w", ErrIncomplete, ctx.Err())
		default:
			log.Printf("[SOLVER] No warm start: %v", err)
		}
	}

	var subtours [][]int
	for iter := 1; ; iter++ {
		if s.opts.MaxIterations > 0 && iter > s.opts.MaxIterations {
			return nil, fmt.Errorf("%w: no single tour after %d iterations", ErrIncomplete, s.opts.MaxIterations)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: iteration %d: %w", ErrIncomplete, iter, err)
		}

		prog := Formulate(d, subtours)
		prog.WarmStart = warm

		iterStart := time.Now()
		sol, err := s.backend.Solve(ctx, prog)
		if err != nil {
			return nil, fmt.Errorf("%w: iteration %d: %w", ErrSolver, iter, err)
		}
		metrics.ILPNodes.Add(float64(sol.Nodes))

		switch sol.Status {
		case ilp.StatusOptimal, ilp.StatusFeasible:
		case ilp.StatusInfeasible:
			return nil, fmt.Errorf("%w: iteration %d: no assignment satisfies %d cuts", ErrInfeasible, iter, len(subtours))
		case ilp.StatusAborted:
			return nil, fmt.Errorf("%w: iteration %d: search stopped without a solution", ErrIncomplete, iter)
		default:
			return nil, fmt.Errorf("%w: iteration %d: unexpected status %s", ErrSolver, iter, sol.Status)
		}

		tours, err := ExtractTours(sol.Assignment)
		if err != nil {
			return nil, err
		}
		log.Printf("[SOLVER] iteration=%d status=%s objective=%d tours=%d nodes=%d time=%v",
			iter, sol.Status, sol.Objective, len(tours), sol.Nodes, time.Since(iterStart))

		if len(tours) == 1 {
			return &Result{
				Status:     sol.Status,
				Objective:  sol.Objective,
				Sequence:   tours[0],
				Iterations: iter,
				Subtours:   subtours,
			}, nil
		}
		subtours = append(subtours, tours...)
		metrics.SubtourCuts.Add(float64(len(tours)))
	}
}

func observe(kind string, res *Result, err error, start time.Time) {
	elapsed := time.Since(start)
	metrics.SolveDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		metrics.Solves.WithLabelValues(kind, Outcome(err)).Inc()
		log.Printf("[ERROR] %s solve failed after %v: %v", kind, elapsed, err)
		return
	}
	metrics.Solves.WithLabelValues(kind, res.Status.String()).Inc()
	metrics.SolveIterations.Observe(float64(res.Iterations))
	log.Printf("[TIMING] %s solve: n=%d objective=%d iterations=%d status=%s time=%v",
		kind, len(res.Sequence), res.Objective, res.Iterations, res.Status, elapsed)
}
