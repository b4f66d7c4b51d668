package ilp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusters returns two cheap cycles {0,1} and {2,3,4} joined by expensive edges.
func clusters() *Program {
	in := func(v int) int {
		if v < 2 {
			return 0
		}
		return 1
	}
	n := 5
	p := &Program{Size: n, Cost: make([][]int64, n), Allowed: make([][]bool, n)}
	for i := 0; i < n; i++ {
		p.Cost[i] = make([]int64, n)
		p.Allowed[i] = make([]bool, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			p.Allowed[i][j] = true
			if in(i) == in(j) {
				p.Cost[i][j] = 1
			} else {
				p.Cost[i][j] = 100
			}
		}
	}
	return p
}

func cycleLength(x AssignmentMatrix, start int) int {
	length := 0
	for v := start; ; {
		length++
		v = x.Next(v)
		if v == start || v < 0 || length > len(x) {
			return length
		}
	}
}

func TestSolveAssignment(t *testing.T) {
	cost := [][]int64{{4, 1, 3}, {2, 0, 5}, {3, 2, 2}}
	all := [][]bool{{true, true, true}, {true, true, true}, {true, true, true}}

	succ, total, ok := solveAssignment(3, cost, all)
	require.True(t, ok)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, []int{1, 0, 2}, succ)
}

func TestSolveAssignment_Forbidden(t *testing.T) {
	cost := [][]int64{{4, 1, 3}, {2, 0, 5}, {3, 2, 2}}
	allowed := [][]bool{{true, false, true}, {true, true, true}, {true, true, false}}

	succ, total, ok := solveAssignment(3, cost, allowed)
	require.True(t, ok)
	assert.Equal(t, []int{2, 1, 0}, succ)
	assert.Equal(t, int64(6), total)
}

func TestSolveAssignment_Infeasible(t *testing.T) {
	cost := [][]int64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}}
	allowed := [][]bool{{true, true, false}, {true, true, false}, {true, true, false}}

	_, _, ok := solveAssignment(3, cost, allowed)
	assert.False(t, ok)
}

func TestBranchAndBound_NoCutsReturnsRelaxation(t *testing.T) {
	p := clusters()

	sol, err := NewBranchAndBound(0).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, int64(5), sol.Objective)
	assert.Equal(t, 2, cycleLength(sol.Assignment, 0))
	assert.Equal(t, 3, cycleLength(sol.Assignment, 2))
}

func TestBranchAndBound_CutsForceSingleCycle(t *testing.T) {
	p := clusters()
	p.Cuts = []Cut{{Nodes: []int{0, 1}}, {Nodes: []int{2, 3, 4}}}

	sol, err := NewBranchAndBound(0).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, int64(203), sol.Objective)
	assert.Equal(t, 5, cycleLength(sol.Assignment, 0))
	assert.Greater(t, sol.Nodes, 1)
}

func TestBranchAndBound_WarmStartIsKeptWhenOptimal(t *testing.T) {
	p := clusters()
	p.Cuts = []Cut{{Nodes: []int{0, 1}}, {Nodes: []int{2, 3, 4}}}
	p.WarmStart = []int{1, 2, 3, 4, 0}

	sol, err := NewBranchAndBound(0).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, int64(203), sol.Objective)
}

func TestBranchAndBound_InfeasibleWarmStartIgnored(t *testing.T) {
	p := clusters()
	p.Cuts = []Cut{{Nodes: []int{0, 1}}}
	// Closes {0,1}, which the cut forbids.
	p.WarmStart = []int{1, 0, 3, 4, 2}

	sol, err := NewBranchAndBound(0).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.True(t, p.Feasible(succOf(sol.Assignment)))
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	p := clusters()
	for j := range p.Allowed[3] {
		p.Allowed[3][j] = false
	}

	sol, err := NewBranchAndBound(0).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Assignment)
}

func TestBranchAndBound_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := clusters()
	p.Cuts = []Cut{{Nodes: []int{0, 1}}}

	sol, err := NewBranchAndBound(0).Solve(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, sol.Status)

	p.WarmStart = []int{1, 2, 3, 4, 0}
	sol, err = NewBranchAndBound(0).Solve(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, StatusFeasible, sol.Status)
	assert.Equal(t, int64(203), sol.Objective)
}

func TestBranchAndBound_NodeLimit(t *testing.T) {
	p := clusters()
	p.Cuts = []Cut{{Nodes: []int{0, 1}}, {Nodes: []int{2, 3, 4}}}

	sol, err := NewBranchAndBound(1).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
	assert.Equal(t, int64(5), sol.Bound)
}

func TestBranchAndBound_InvalidProgram(t *testing.T) {
	tests := []struct {
		name string
		p    *Program
	}{
		{"nil", nil},
		{"empty", &Program{}},
		{"ragged", &Program{Size: 2, Cost: [][]int64{{0, 1}}, Allowed: [][]bool{{false, true}, {true, false}}}},
		{"short cut", func() *Program { p := clusters(); p.Cuts = []Cut{{Nodes: []int{1}}}; return p }()},
		{"duplicate cut node", func() *Program { p := clusters(); p.Cuts = []Cut{{Nodes: []int{1, 1}}}; return p }()},
		{"cut out of range", func() *Program { p := clusters(); p.Cuts = []Cut{{Nodes: []int{1, 9}}}; return p }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := NewBranchAndBound(0).Solve(context.Background(), tt.p)
			assert.ErrorIs(t, err, ErrInvalidProgram)
			assert.Equal(t, StatusError, sol.Status)
		})
	}
}

func TestAssignmentMatrix_Next(t *testing.T) {
	x := NewAssignmentMatrix([]int{2, 0, 1})
	assert.Equal(t, 2, x.Next(0))
	assert.Equal(t, 0, x.Next(1))
	assert.Equal(t, 1, x.Next(2))
	assert.Equal(t, -1, x.Next(3))
	assert.Equal(t, -1, AssignmentMatrix{{false, false}}.Next(0))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "optimal", StatusOptimal.String())
	assert.Equal(t, "infeasible", StatusInfeasible.String())
	assert.Equal(t, "status(42)", Status(42).String())
	assert.True(t, StatusFeasible.HasSolution())
	assert.False(t, StatusAborted.HasSolution())
}

func succOf(x AssignmentMatrix) []int {
	succ := make([]int, len(x))
	for i := range x {
		succ[i] = x.Next(i)
	}
	return succ
}
