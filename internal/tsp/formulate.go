package tsp

import (
	"tour-planner/internal/ilp"
	"tour-planner/internal/matrix"
)

// Formulate builds the assignment program for m with one cut per subtour.
// x[i][j] is free iff the distance i→j is known and i≠j; every other
// variable is fixed to zero and its cost is irrelevant.
func Formulate(m *matrix.Matrix, subtours [][]int) *ilp.Program {
	n := m.Size()
	p := &ilp.Program{
		Size:    n,
		Cost:    make([][]int64, n),
		Allowed: make([][]bool, n),
	}
	for i := 0; i < n; i++ {
		p.Cost[i] = make([]int64, n)
		p.Allowed[i] = make([]bool, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if d, ok := m.At(i, j); ok {
				p.Cost[i][j] = d
				p.Allowed[i][j] = true
			}
		}
	}
	for _, s := range subtours {
		if len(s) < 2 {
			continue
		}
		p.Cuts = append(p.Cuts, ilp.Cut{Nodes: append([]int(nil), s...)})
	}
	return p
}
