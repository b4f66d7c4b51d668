package tsp

import (
	"fmt"

	"tour-planner/internal/ilp"
)

// ExtractTours decodes a permutation matrix into its cycles. The first cycle
// starts at node 0, each later one at the lowest-index node not yet visited.
// x is not modified.
func ExtractTours(x ilp.AssignmentMatrix) ([][]int, error) {
	n := len(x)
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("%w: assignment row %d has %d columns, want %d", ErrSolver, i, len(row), n)
		}
		out := 0
		for _, set := range row {
			if set {
				out++
			}
		}
		if out != 1 {
			return nil, fmt.Errorf("%w: node %d has %d outgoing edges", ErrSolver, i, out)
		}
	}

	visited := make([]bool, n)
	var tours [][]int
	for seed := 0; seed < n; seed++ {
		if visited[seed] {
			continue
		}
		var tour []int
		for v := seed; ; {
			visited[v] = true
			tour = append(tour, v)
			next := x.Next(v)
			if next == seed {
				break
			}
			if visited[next] {
				return nil, fmt.Errorf("%w: edge %d→%d re-enters a closed tour", ErrSolver, v, next)
			}
			v = next
		}
		tours = append(tours, tour)
	}
	return tours, nil
}
