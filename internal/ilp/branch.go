package ilp

import (
	"container/heap"
	"context"
)

type edge struct{ from, to int }

// BranchAndBound is an exact best-first solver. Each node relaxes the
// program to the assignment problem over its allowed cells; a node whose
// relaxation breaks a cut is split over the cut's internal edges e1..em,
// child t forbidding e_t and forcing e1..e_{t-1}.
type BranchAndBound struct {
	// MaxNodes caps the nodes explored per solve. Zero means no cap.
	MaxNodes int
}

// NewBranchAndBound returns a solver with the given node cap.
func NewBranchAndBound(maxNodes int) *BranchAndBound {
	return &BranchAndBound{MaxNodes: maxNodes}
}

type searchNode struct {
	forced    []edge
	forbidden []edge
	succ      []int
	bound     int64
	seq       int
}

type nodeQueue []*searchNode

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(a, b int) bool {
	if q[a].bound != q[b].bound {
		return q[a].bound < q[b].bound
	}
	return q[a].seq < q[b].seq
}
func (q nodeQueue) Swap(a, b int) { q[a], q[b] = q[b], q[a] }
func (q *nodeQueue) Push(x any)   { *q = append(*q, x.(*searchNode)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Solve implements Solver.
func (b *BranchAndBound) Solve(ctx context.Context, p *Program) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return &Solution{Status: StatusError}, err
	}

	var (
		incumbent     []int
		incumbentCost int64
		explored      int
		seq           int
	)
	if p.WarmStart != nil && p.Feasible(p.WarmStart) {
		incumbent = append([]int(nil), p.WarmStart...)
		incumbentCost = p.Objective(incumbent)
	}

	root, ok := b.relax(p, nil, nil)
	if !ok {
		return &Solution{Status: StatusInfeasible}, nil
	}
	queue := &nodeQueue{root}
	bound := root.bound

	finish := func(stopped bool) *Solution {
		sol := &Solution{Nodes: explored, Bound: bound}
		switch {
		case incumbent != nil && stopped:
			sol.Status = StatusFeasible
		case incumbent != nil:
			sol.Status = StatusOptimal
			sol.Bound = incumbentCost
		case stopped:
			sol.Status = StatusAborted
			return sol
		default:
			sol.Status = StatusInfeasible
			return sol
		}
		sol.Objective = incumbentCost
		sol.Assignment = NewAssignmentMatrix(incumbent)
		return sol
	}

	for queue.Len() > 0 {
		if ctx.Err() != nil {
			return finish(true), nil
		}
		if b.MaxNodes > 0 && explored >= b.MaxNodes {
			return finish(true), nil
		}

		nd := heap.Pop(queue).(*searchNode)
		bound = nd.bound
		// Best-first: every open node is at least as expensive.
		if incumbent != nil && nd.bound >= incumbentCost {
			break
		}
		explored++

		c := p.violatedCut(nd.succ)
		if c < 0 {
			incumbent = nd.succ
			incumbentCost = nd.bound
			break
		}

		var internal []edge
		for _, i := range p.Cuts[c].Nodes {
			for _, j := range p.Cuts[c].Nodes {
				if nd.succ[i] == j {
					internal = append(internal, edge{i, j})
				}
			}
		}

		for t, e := range internal {
			if containsEdge(nd.forced, e) {
				continue
			}
			forbidden := append(append([]edge(nil), nd.forbidden...), e)
			forced := append(append([]edge(nil), nd.forced...), internal[:t]...)
			child, ok := b.relax(p, forced, forbidden)
			if !ok {
				continue
			}
			if incumbent != nil && child.bound >= incumbentCost {
				continue
			}
			seq++
			child.seq = seq
			heap.Push(queue, child)
		}
	}

	return finish(false), nil
}

// relax solves the assignment relaxation under the node's fixings.
func (b *BranchAndBound) relax(p *Program, forced, forbidden []edge) (*searchNode, bool) {
	n := p.Size
	allowed := make([][]bool, n)
	for i := 0; i < n; i++ {
		allowed[i] = make([]bool, n)
		for j := 0; j < n; j++ {
			allowed[i][j] = p.allowed(i, j)
		}
	}
	for _, e := range forced {
		for k := 0; k < n; k++ {
			if k != e.to {
				allowed[e.from][k] = false
			}
			if k != e.from {
				allowed[k][e.to] = false
			}
		}
	}
	for _, e := range forbidden {
		allowed[e.from][e.to] = false
	}

	succ, total, ok := solveAssignment(n, p.Cost, allowed)
	if !ok {
		return nil, false
	}
	return &searchNode{forced: forced, forbidden: forbidden, succ: succ, bound: total}, true
}

func containsEdge(edges []edge, e edge) bool {
	for _, x := range edges {
		if x == e {
			return true
		}
	}
	return false
}
