package tsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-planner/internal/ilp"
)

func TestExtractTours(t *testing.T) {
	tests := []struct {
		name string
		succ []int
		want [][]int
	}{
		{"single tour", []int{2, 0, 3, 1}, [][]int{{0, 2, 3, 1}}},
		{"two tours", []int{1, 0, 4, 2, 3}, [][]int{{0, 1}, {2, 4, 3}}},
		{"seeds by lowest index", []int{3, 2, 1, 0}, [][]int{{0, 3}, {1, 2}}},
		{"fixed point", []int{0}, [][]int{{0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tours, err := ExtractTours(ilp.NewAssignmentMatrix(tt.succ))
			require.NoError(t, err)
			assert.Equal(t, tt.want, tours)
		})
	}
}

func TestExtractTours_DoesNotMutate(t *testing.T) {
	x := ilp.NewAssignmentMatrix([]int{1, 0, 3, 2})
	snapshot := ilp.NewAssignmentMatrix([]int{1, 0, 3, 2})

	_, err := ExtractTours(x)
	require.NoError(t, err)
	assert.Equal(t, snapshot, x)
}

func TestExtractTours_NotAPermutation(t *testing.T) {
	tests := []struct {
		name string
		x    ilp.AssignmentMatrix
	}{
		{"no outgoing edge", ilp.AssignmentMatrix{{false, true}, {false, false}}},
		{"two outgoing edges", ilp.AssignmentMatrix{{false, true, true}, {true, false, false}, {true, false, false}}},
		{"re-enters a tour", ilp.AssignmentMatrix{{false, true, false}, {false, false, true}, {false, true, false}}},
		{"ragged", ilp.AssignmentMatrix{{false, true}, {true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractTours(tt.x)
			assert.ErrorIs(t, err, ErrSolver)
		})
	}
}

func TestFormulate(t *testing.T) {
	m := mustMatrix(t, [][]int64{
		{0, 5, -1},
		{5, 0, 7},
		{3, 7, 0},
	})
	subtours := [][]int{{0, 1}, {2}}

	p := Formulate(m, subtours)
	require.NoError(t, p.Validate())
	assert.Equal(t, 3, p.Size)
	assert.False(t, p.Allowed[0][0], "diagonal is fixed")
	assert.False(t, p.Allowed[0][2], "unknown edge is fixed")
	assert.True(t, p.Allowed[2][0])
	assert.Equal(t, int64(7), p.Cost[1][2])
	require.Len(t, p.Cuts, 1)
	assert.Equal(t, []int{0, 1}, p.Cuts[0].Nodes)

	subtours[0][0] = 9
	assert.Equal(t, 0, p.Cuts[0].Nodes[0], "cuts own their node slices")
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "infeasible", Outcome(ErrInfeasible))
	assert.Equal(t, "solver_error", Outcome(ErrSolver))
	assert.Equal(t, "incomplete", Outcome(ErrIncomplete))
	assert.Equal(t, "malformed", Outcome(ErrMalformedMatrix))
}
