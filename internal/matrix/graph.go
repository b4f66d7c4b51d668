package matrix

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Components returns the strongly connected components of the directed graph
// formed by the known off-diagonal cells. Each component is sorted, and the
// components are ordered by their smallest node.
func (m *Matrix) Components() [][]int {
	n := m.Size()
	if n == 0 {
		return nil
	}

	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && m.known[i*n+j] {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}

	sccs := topo.TarjanSCC(g)
	components := make([][]int, 0, len(sccs))
	for _, scc := range sccs {
		ids := make([]int, len(scc))
		for k, node := range scc {
			ids[k] = int(node.ID())
		}
		sort.Ints(ids)
		components = append(components, ids)
	}
	sort.Slice(components, func(a, b int) bool {
		return components[a][0] < components[b][0]
	})
	return components
}

// StronglyConnected reports whether every node can reach every other node
// over known distances. A Hamiltonian cycle cannot exist otherwise.
func (m *Matrix) StronglyConnected() bool {
	if m.Size() <= 1 {
		return true
	}
	return len(m.Components()) == 1
}

// Closure runs Floyd–Warshall over the known cells. It returns the matrix of
// shortest distances (unknown where no path exists) and a next-hop table:
// next[i][j] is the node after i on a shortest path to j, or -1.
func (m *Matrix) Closure() (*Matrix, [][]int) {
	n := m.Size()
	const inf = math.MaxInt64

	d := make([][]int64, n)
	next := make([][]int, n)
	for i := 0; i < n; i++ {
		d[i] = make([]int64, n)
		next[i] = make([]int, n)
		for j := 0; j < n; j++ {
			next[i][j] = -1
			switch {
			case i == j:
				d[i][j] = 0
				next[i][j] = j
			case m.known[i*n+j]:
				d[i][j] = m.dist[i*n+j]
				next[i][j] = j
			default:
				d[i][j] = inf
			}
		}
	}

	// k -> i -> j order is fixed so ties resolve deterministically.
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if d[i][k] == inf {
				continue
			}
			for j := 0; j < n; j++ {
				if d[k][j] == inf {
					continue
				}
				if cand := d[i][k] + d[k][j]; cand < d[i][j] {
					d[i][j] = cand
					next[i][j] = next[i][k]
				}
			}
		}
	}

	c, _ := New(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if d[i][j] != inf {
				c.dist[i*n+j] = d[i][j]
				c.known[i*n+j] = true
			}
		}
	}
	return c, next
}

// Route expands the shortest path from i to j using the next-hop table from
// Closure. It returns nil when j is unreachable.
func Route(next [][]int, i, j int) []int {
	if next[i][j] < 0 {
		return nil
	}
	route := []int{i}
	for i != j {
		i = next[i][j]
		route = append(route, i)
	}
	return route
}
