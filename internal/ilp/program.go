// Package ilp models and solves the assignment-type 0/1 integer program used
// by the tour solver: one binary variable per directed edge, exactly one
// outgoing and one incoming edge per node, and subtour cuts.
package ilp

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidProgram is returned by Solve for a structurally broken program.
var ErrInvalidProgram = errors.New("ilp: invalid program")

// Status is the outcome of a solve.
type Status int

const (
	StatusNotSolved Status = iota
	// StatusOptimal means the assignment is proven optimal.
	StatusOptimal
	// StatusFeasible means the assignment satisfies every constraint but
	// the search stopped before proving optimality.
	StatusFeasible
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusAborted means the search was cancelled or hit a limit before
	// finding any feasible assignment.
	StatusAborted
	// StatusError means the solver failed without a definitive answer.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "not_solved"
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusAborted:
		return "aborted"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// HasSolution reports whether a solution with this status carries an assignment.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Cut keeps Nodes from being closed into an isolated cycle:
//
//	Σ over unordered pairs {i,j} ⊂ Nodes of (x[i][j] + x[j][i]) ≤ len(Nodes) − 1
type Cut struct {
	Nodes []int
}

// Program is one instance of the integer program.
type Program struct {
	// Size is the number of nodes.
	Size int
	// Cost[i][j] is the objective coefficient of x[i][j].
	Cost [][]int64
	// Allowed[i][j] false fixes x[i][j] to 0. The diagonal is always fixed.
	Allowed [][]bool
	// Cuts are the subtour elimination constraints.
	Cuts []Cut
	// WarmStart is an optional successor list known to be feasible. It is
	// used as the initial incumbent and ignored when it is not feasible.
	WarmStart []int
}

// Validate checks the program shape.
func (p *Program) Validate() error {
	if p == nil || p.Size <= 0 {
		return fmt.Errorf("%w: empty program", ErrInvalidProgram)
	}
	if len(p.Cost) != p.Size || len(p.Allowed) != p.Size {
		return fmt.Errorf("%w: cost/allowed rows do not match size %d", ErrInvalidProgram, p.Size)
	}
	for i := 0; i < p.Size; i++ {
		if len(p.Cost[i]) != p.Size || len(p.Allowed[i]) != p.Size {
			return fmt.Errorf("%w: row %d does not match size %d", ErrInvalidProgram, i, p.Size)
		}
	}
	for c, cut := range p.Cuts {
		if len(cut.Nodes) < 2 {
			return fmt.Errorf("%w: cut %d has %d nodes", ErrInvalidProgram, c, len(cut.Nodes))
		}
		seen := make(map[int]bool, len(cut.Nodes))
		for _, v := range cut.Nodes {
			if v < 0 || v >= p.Size || seen[v] {
				return fmt.Errorf("%w: cut %d has bad node %d", ErrInvalidProgram, c, v)
			}
			seen[v] = true
		}
	}
	return nil
}

// allowed reports whether x[i][j] may be 1.
func (p *Program) allowed(i, j int) bool {
	return i != j && p.Allowed[i][j]
}

// Objective returns the cost of a successor list.
func (p *Program) Objective(succ []int) int64 {
	var total int64
	for i, j := range succ {
		total += p.Cost[i][j]
	}
	return total
}

// Feasible reports whether a successor list satisfies every constraint.
func (p *Program) Feasible(succ []int) bool {
	if len(succ) != p.Size {
		return false
	}
	incoming := make([]bool, p.Size)
	for i, j := range succ {
		if j < 0 || j >= p.Size || incoming[j] || !p.allowed(i, j) {
			return false
		}
		incoming[j] = true
	}
	return p.violatedCut(succ) < 0
}

// violatedCut returns the index of the first cut broken by succ, or -1.
func (p *Program) violatedCut(succ []int) int {
	for c, cut := range p.Cuts {
		if internalEdges(cut, succ) > len(cut.Nodes)-1 {
			return c
		}
	}
	return -1
}

// internalEdges counts the selected edges with both ends in the cut, which
// equals the left-hand side of the cut for a permutation.
func internalEdges(cut Cut, succ []int) int {
	count := 0
	for _, i := range cut.Nodes {
		for _, j := range cut.Nodes {
			if succ[i] == j {
				count++
				break
			}
		}
	}
	return count
}

// AssignmentMatrix is the 0/1 solution matrix: x[i][j] is true when the
// directed edge i→j is selected.
type AssignmentMatrix [][]bool

// NewAssignmentMatrix builds the matrix for a successor list.
func NewAssignmentMatrix(succ []int) AssignmentMatrix {
	x := make(AssignmentMatrix, len(succ))
	for i, j := range succ {
		x[i] = make([]bool, len(succ))
		x[i][j] = true
	}
	return x
}

// Next returns the first j with x[i][j] set, or -1.
func (x AssignmentMatrix) Next(i int) int {
	if i < 0 || i >= len(x) {
		return -1
	}
	for j, set := range x[i] {
		if set {
			return j
		}
	}
	return -1
}

// Solution is the result of a solve.
type Solution struct {
	Status    Status
	Objective int64
	// Assignment is nil unless Status.HasSolution().
	Assignment AssignmentMatrix
	// Bound is the best known lower bound on the objective.
	Bound int64
	// Nodes is the number of search nodes explored.
	Nodes int
}

// Solver solves a program. Implementations must not keep state between calls.
type Solver interface {
	Solve(ctx context.Context, p *Program) (*Solution, error)
}
