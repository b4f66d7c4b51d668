package routing

import (
	"context"
	"log"
	"time"

	"tour-planner/internal/matrix"
)

// twoOptBuilder builds a tour by nearest neighbor over known edges and
// improves it with 2-opt segment reversals.
type twoOptBuilder struct {
	maxPasses int
}

// NewTwoOptBuilder creates a builder that runs at most maxPasses 2-opt
// passes. Zero means until no reversal improves the tour.
func NewTwoOptBuilder(maxPasses int) TourBuilder {
	return &twoOptBuilder{maxPasses: maxPasses}
}

func (b *twoOptBuilder) BuildTour(ctx context.Context, m *matrix.Matrix) (*Tour, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	n := m.Size()
	if n == 1 {
		return &Tour{Order: []int{0}}, nil
	}

	start := time.Now()
	var order []int
	for seed := 0; seed < n && order == nil; seed++ {
		order = nearestNeighbor(m, seed)
	}
	if order == nil {
		return nil, &ErrRoutingFailed{Reason: "no closed tour over known edges found by nearest neighbor"}
	}
	order = rotateToZero(order)

	cost, _ := tourCost(m, order)
	before := cost
	passes := 0
	for improved := true; improved; passes++ {
		if b.maxPasses > 0 && passes >= b.maxPasses {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		improved = false
		// Node 0 stays first; reversing order[i..j] with i ≥ 1 keeps it a rotation-free tour.
		for i := 1; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				reverseSegment(order, i, j)
				if c, ok := tourCost(m, order); ok && c < cost {
					cost = c
					improved = true
					continue
				}
				reverseSegment(order, i, j)
			}
		}
	}

	log.Printf("[ROUTING] Warm start tour: n=%d nn_cost=%d cost=%d passes=%d time=%v",
		n, before, cost, passes, time.Since(start))
	return &Tour{Order: order, Cost: cost}, nil
}

// nearestNeighbor walks from seed to the closest unvisited node over known
// edges. It returns nil when the walk gets stuck or cannot close.
func nearestNeighbor(m *matrix.Matrix, seed int) []int {
	n := m.Size()
	visited := make([]bool, n)
	order := make([]int, 0, n)
	cur := seed
	visited[cur] = true
	order = append(order, cur)

	for len(order) < n {
		next := -1
		var best int64
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			d, ok := m.At(cur, j)
			if !ok {
				continue
			}
			if next < 0 || d < best {
				next, best = j, d
			}
		}
		if next < 0 {
			return nil
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}

	if !m.Known(cur, seed) {
		return nil
	}
	return order
}

// tourCost sums the closed tour. ok is false if any edge is unknown.
func tourCost(m *matrix.Matrix, order []int) (int64, bool) {
	var total int64
	for k := range order {
		d, ok := m.At(order[k], order[(k+1)%len(order)])
		if !ok {
			return 0, false
		}
		total += d
	}
	return total, true
}

func rotateToZero(order []int) []int {
	for k, v := range order {
		if v == 0 {
			return append(append([]int(nil), order[k:]...), order[:k]...)
		}
	}
	return order
}

func reverseSegment(order []int, i, j int) {
	for i < j {
		order[i], order[j] = order[j], order[i]
		i++
		j--
	}
}

// Successors converts a tour order into a successor list: succ[order[k]] = order[k+1].
func Successors(order []int) []int {
	succ := make([]int, len(order))
	for k, v := range order {
		succ[v] = order[(k+1)%len(order)]
	}
	return succ
}
