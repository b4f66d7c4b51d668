package itinerary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-planner/internal/ilp"
	"tour-planner/internal/matrix"
	"tour-planner/internal/tsp"
)

// lineMatrix places n stops on a line, 10 apart.
func lineMatrix(t *testing.T, n int) *matrix.Matrix {
	t.Helper()
	rows := make([][]int64, n)
	for i := range rows {
		rows[i] = make([]int64, n)
		for j := range rows[i] {
			d := int64(i - j)
			if d < 0 {
				d = -d
			}
			rows[i][j] = 10 * d
		}
	}
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return m
}

// identitySolver visits a segment in index order.
type identitySolver struct {
	err error
}

func (s *identitySolver) SolvePath(ctx context.Context, m *matrix.Matrix) (*tsp.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	seq := make([]int, m.Size())
	for i := range seq {
		seq[i] = i
	}
	return &tsp.Result{Status: ilp.StatusOptimal, Sequence: seq, Iterations: 1}, nil
}

func TestPlan_ConcatenatesWithOffsets(t *testing.T) {
	m := lineMatrix(t, 6)
	names := []string{"a", "b", "c", "d", "e", "f"}
	segments := []Segment{{From: 0, To: 3}, {From: 3, To: 6, Reverse: true}}

	it, err := NewPlanner(&identitySolver{}, 2).Plan(context.Background(), m, segments, names)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 5, 4, 3}, it.Path)
	require.Len(t, it.Legs, 2)
	assert.Equal(t, []int{5, 4, 3}, it.Legs[1].Path)
	assert.Equal(t, int64(20), it.Legs[1].Objective)
	assert.Equal(t, []string{"f", "e", "d"}, it.Legs[1].Report.Names)
	assert.Equal(t, []int{5, 4, 3}, it.Legs[1].Report.Indices)
	assert.Equal(t, int64(70), it.Report.Total)
	assert.Equal(t, []string{"a", "b", "c", "f", "e", "d"}, it.Report.Names)
}

func TestPlan_WithSolver(t *testing.T) {
	m := lineMatrix(t, 7)
	solver := tsp.NewSolver(ilp.NewBranchAndBound(0), tsp.Options{WarmStart: true})

	it, err := NewPlanner(solver, 2).Plan(context.Background(), m, Split(7, 3), nil)
	require.NoError(t, err)

	require.Len(t, it.Legs, 2)
	assert.Equal(t, int64(20), it.Legs[0].Objective)
	assert.Equal(t, int64(30), it.Legs[1].Objective)
	assert.ElementsMatch(t, []int{0, 1, 2}, it.Legs[0].Path)
	assert.ElementsMatch(t, []int{3, 4, 5, 6}, it.Legs[1].Path)
	assert.Len(t, it.Path, 7)
	assert.True(t, it.Report.Complete())
}

func TestPlan_InvalidSegments(t *testing.T) {
	m := lineMatrix(t, 4)
	tests := []struct {
		name     string
		segments []Segment
	}{
		{"none", nil},
		{"empty", []Segment{{From: 2, To: 2}}},
		{"out of range", []Segment{{From: 0, To: 5}}},
		{"negative", []Segment{{From: -1, To: 2}}},
		{"overlap", []Segment{{From: 0, To: 3}, {From: 2, To: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlanner(&identitySolver{}, 1).Plan(context.Background(), m, tt.segments, nil)
			assert.ErrorIs(t, err, ErrInvalidSegment)
		})
	}
}

func TestPlan_SolverErrorPropagates(t *testing.T) {
	m := lineMatrix(t, 4)
	solver := &identitySolver{err: tsp.ErrInfeasible}

	_, err := NewPlanner(solver, 1).Plan(context.Background(), m, Split(4, 2), nil)
	assert.ErrorIs(t, err, tsp.ErrInfeasible)
	assert.Contains(t, err.Error(), "segment 0")
}

func TestPlan_MalformedMatrix(t *testing.T) {
	_, err := NewPlanner(&identitySolver{}, 1).Plan(context.Background(), nil, Split(1), nil)
	assert.ErrorIs(t, err, tsp.ErrMalformedMatrix)
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []Segment{{From: 0, To: 6}, {From: 6, To: 20}}, Split(20, 6))
	assert.Equal(t, []Segment{{From: 0, To: 5}}, Split(5))
	assert.Equal(t, []Segment{{From: 0, To: 2}, {From: 2, To: 5}}, Split(5, 2, 2, 9))
}
