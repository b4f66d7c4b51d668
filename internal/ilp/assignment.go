package ilp

import "math"

const infCost = math.MaxInt64

// solveAssignment solves the linear assignment problem restricted to the
// allowed cells with the Hungarian method (shortest augmenting paths with
// potentials). It returns the successor list and its cost, or ok=false when
// no perfect assignment exists.
//
// Complexity: O(n³).
func solveAssignment(n int, cost [][]int64, allowed [][]bool) (succ []int, total int64, ok bool) {
	// 1-based: row/column 0 is the virtual root of the augmenting tree.
	u := make([]int64, n+1)
	v := make([]int64, n+1)
	p := make([]int, n+1) // p[j] is the row matched to column j
	way := make([]int, n+1)
	minv := make([]int64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := 0; j <= n; j++ {
			minv[j] = infCost
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := int64(infCost)
			j1 := -1

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				if allowed[i0-1][j-1] {
					if cur := cost[i0-1][j-1] - u[i0] - v[j]; cur < minv[j] {
						minv[j] = cur
						way[j] = j0
					}
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			// Alternating tree exhausted: rows 1..i cannot all be matched.
			if j1 < 0 {
				return nil, 0, false
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else if minv[j] != infCost {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	succ = make([]int, n)
	for j := 1; j <= n; j++ {
		succ[p[j]-1] = j - 1
		total += cost[p[j]-1][j-1]
	}
	return succ, total, true
}
