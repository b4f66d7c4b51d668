// Package itinerary plans a route through consecutive groups of stops. Each
// group is a contiguous block of the distance matrix solved on its own as an
// open path; groups are then joined end to start in the order given.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"tour-planner/internal/matrix"
	"tour-planner/internal/report"
	"tour-planner/internal/tsp"
)

// ErrInvalidSegment is returned for empty, overlapping or out-of-range segments
var ErrInvalidSegment = errors.New("itinerary: invalid segment")

// PathSolver solves an open path over a matrix.
type PathSolver interface {
	SolvePath(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error)
}

// Segment is the half-open block [From, To) of the matrix.
type Segment struct {
	From int `json:"from"`
	To   int `json:"to"`
	// Reverse travels the solved path backwards.
	Reverse bool `json:"reverse"`
}

// Leg is one solved segment.
type Leg struct {
	Segment    Segment `json:"segment"`
	Path       []int   `json:"path"`
	Objective  int64   `json:"objective"`
	Iterations int     `json:"iterations"`
	// Report covers the segment in travel direction, with global indices.
	Report *report.Report `json:"report"`
}

// Itinerary is the concatenated route.
type Itinerary struct {
	Path   []int          `json:"path"`
	Legs   []Leg          `json:"legs"`
	Report *report.Report `json:"report"`
}

// Planner solves segments with a PathSolver.
type Planner struct {
	solver      PathSolver
	concurrency int
}

// NewPlanner creates a Planner solving up to concurrency segments at once.
func NewPlanner(solver PathSolver, concurrency int) *Planner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Planner{solver: solver, concurrency: concurrency}
}

// Plan solves every segment of m and joins them in order. names may be nil.
func (p *Planner) Plan(ctx context.Context, m *matrix.Matrix, segments []Segment, names []string) (*Itinerary, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", tsp.ErrMalformedMatrix, err)
	}
	if err := validateSegments(segments, m.Size()); err != nil {
		return nil, err
	}

	start := time.Now()
	legs := make([]Leg, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			leg, err := p.solveSegment(gctx, m, seg, names)
			if err != nil {
				return fmt.Errorf("segment %d [%d,%d): %w", i, seg.From, seg.To, err)
			}
			legs[i] = *leg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var path []int
	for _, leg := range legs {
		path = append(path, leg.Path...)
	}
	full, err := report.Build(m, path, report.Options{Names: names})
	if err != nil {
		return nil, err
	}

	log.Printf("[SOLVER] Itinerary planned: segments=%d stops=%d total=%d unknown_legs=%d time=%v",
		len(segments), len(path), full.Total, full.UnknownLegs, time.Since(start))
	return &Itinerary{Path: path, Legs: legs, Report: full}, nil
}

func (p *Planner) solveSegment(ctx context.Context, m *matrix.Matrix, seg Segment, names []string) (*Leg, error) {
	sub, err := m.Sub(seg.From, seg.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSegment, err)
	}
	res, err := p.solver.SolvePath(ctx, sub)
	if err != nil {
		return nil, err
	}

	local := append([]int(nil), res.Sequence...)
	if seg.Reverse {
		for i, j := 0, len(local)-1; i < j; i, j = i+1, j-1 {
			local[i], local[j] = local[j], local[i]
		}
	}

	rep, err := report.Build(sub, local, report.Options{Names: names, Offset: seg.From})
	if err != nil {
		return nil, err
	}

	global := make([]int, len(local))
	for k, v := range local {
		global[k] = v + seg.From
	}
	return &Leg{
		Segment:    seg,
		Path:       global,
		Objective:  rep.Total,
		Iterations: res.Iterations,
		Report:     rep,
	}, nil
}

func validateSegments(segments []Segment, n int) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidSegment)
	}
	used := make([]bool, n)
	for i, s := range segments {
		if s.From < 0 || s.To > n || s.From >= s.To {
			return fmt.Errorf("%w: segment %d [%d,%d) outside [0,%d)", ErrInvalidSegment, i, s.From, s.To, n)
		}
		for v := s.From; v < s.To; v++ {
			if used[v] {
				return fmt.Errorf("%w: segment %d overlaps node %d", ErrInvalidSegment, i, v)
			}
			used[v] = true
		}
	}
	return nil
}

// Split returns one forward segment per boundary: Split(20, 6) is
// [0,6) and [6,20).
func Split(n int, boundaries ...int) []Segment {
	var segs []Segment
	from := 0
	for _, b := range boundaries {
		if b <= from || b >= n {
			continue
		}
		segs = append(segs, Segment{From: from, To: b})
		from = b
	}
	return append(segs, Segment{From: from, To: n})
}
