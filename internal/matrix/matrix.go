// Package matrix holds the distance matrix consumed by the tour solver.
//
// A cell is either a non-negative integer distance or unknown. Unknown is an
// explicit flag, never a sentinel value, so a legitimate zero distance (such
// as the edges to a phantom node) cannot be confused with a missing one. The
// -1 marker only exists at the edges: FromRows, Rows and the JSON codec.
package matrix

import (
	"fmt"
	"math"
)

// Unknown is the marker used by FromRows and Rows for a missing distance.
const Unknown int64 = -1

// Matrix is a square distance matrix with optional cells.
type Matrix struct {
	n     int
	dist  []int64
	known []bool
}

// New creates an n×n matrix with every cell unknown.
func New(n int) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("new %d: %w", n, ErrOutOfRange)
	}
	return &Matrix{
		n:     n,
		dist:  make([]int64, n*n),
		known: make([]bool, n*n),
	}, nil
}

// FromRows builds a matrix from row slices. A value of -1 marks an unknown
// distance; any other negative value is rejected.
func FromRows(rows [][]int64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	m, _ := New(len(rows))
	for i, row := range rows {
		if len(row) != m.n {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), m.n, ErrNonSquare)
		}
		for j, v := range row {
			if v == Unknown {
				continue
			}
			if v < 0 {
				return nil, fmt.Errorf("cell (%d,%d) = %d: %w", i, j, v, ErrNegative)
			}
			m.dist[i*m.n+j] = v
			m.known[i*m.n+j] = true
		}
	}
	return m, nil
}

// Size returns the number of rows (and columns).
func (m *Matrix) Size() int {
	if m == nil {
		return 0
	}
	return m.n
}

// At returns the distance from i to j and whether it is known.
// Out-of-range indices report unknown.
func (m *Matrix) At(i, j int) (int64, bool) {
	if !m.inRange(i, j) {
		return 0, false
	}
	k := i*m.n + j
	return m.dist[k], m.known[k]
}

// Known reports whether the distance from i to j is known.
func (m *Matrix) Known(i, j int) bool {
	_, ok := m.At(i, j)
	return ok
}

// Set stores a known distance.
func (m *Matrix) Set(i, j int, d int64) error {
	if !m.inRange(i, j) {
		return fmt.Errorf("set (%d,%d): %w", i, j, ErrOutOfRange)
	}
	if d < 0 {
		return fmt.Errorf("set (%d,%d) = %d: %w", i, j, d, ErrNegative)
	}
	k := i*m.n + j
	m.dist[k] = d
	m.known[k] = true
	return nil
}

// SetUnknown marks the distance from i to j as unknown.
func (m *Matrix) SetUnknown(i, j int) error {
	if !m.inRange(i, j) {
		return fmt.Errorf("set unknown (%d,%d): %w", i, j, ErrOutOfRange)
	}
	k := i*m.n + j
	m.dist[k] = 0
	m.known[k] = false
	return nil
}

func (m *Matrix) inRange(i, j int) bool {
	return m != nil && i >= 0 && j >= 0 && i < m.n && j < m.n
}

// Validate checks that the matrix can be handed to a solver.
func (m *Matrix) Validate() error {
	if m == nil || m.n == 0 {
		return ErrEmpty
	}
	if len(m.dist) != m.n*m.n || len(m.known) != m.n*m.n {
		return ErrNonSquare
	}
	return nil
}

// Clone returns an independent copy.
func (m *Matrix) Clone() *Matrix {
	if m == nil {
		return nil
	}
	c := &Matrix{
		n:     m.n,
		dist:  make([]int64, len(m.dist)),
		known: make([]bool, len(m.known)),
	}
	copy(c.dist, m.dist)
	copy(c.known, m.known)
	return c
}

// Rows returns the matrix as row slices with -1 for unknown cells.
func (m *Matrix) Rows() [][]int64 {
	rows := make([][]int64, m.Size())
	for i := range rows {
		rows[i] = make([]int64, m.n)
		for j := range rows[i] {
			if d, ok := m.At(i, j); ok {
				rows[i][j] = d
			} else {
				rows[i][j] = Unknown
			}
		}
	}
	return rows
}

// KnownCount returns the number of known off-diagonal cells.
func (m *Matrix) KnownCount() int {
	count := 0
	for i := 0; i < m.Size(); i++ {
		for j := 0; j < m.n; j++ {
			if i != j && m.known[i*m.n+j] {
				count++
			}
		}
	}
	return count
}

// IsSymmetric reports whether D[i][j] == D[j][i] for every pair, treating two
// unknown cells as equal.
func (m *Matrix) IsSymmetric() bool {
	for i := 0; i < m.Size(); i++ {
		for j := i + 1; j < m.n; j++ {
			a, aok := m.At(i, j)
			b, bok := m.At(j, i)
			if aok != bok || a != b {
				return false
			}
		}
	}
	return true
}

// Sub returns the square block of rows and columns [from, to).
func (m *Matrix) Sub(from, to int) (*Matrix, error) {
	if from < 0 || to > m.Size() || from >= to {
		return nil, fmt.Errorf("sub [%d,%d) of %d: %w", from, to, m.Size(), ErrOutOfRange)
	}
	s, _ := New(to - from)
	for i := from; i < to; i++ {
		for j := from; j < to; j++ {
			k := i*m.n + j
			sk := (i-from)*s.n + (j - from)
			s.dist[sk] = m.dist[k]
			s.known[sk] = m.known[k]
		}
	}
	return s, nil
}

// Scale divides every known positive distance by div, rounding to the
// nearest integer. It converts provider meters into kilometres.
func (m *Matrix) Scale(div int64) (*Matrix, error) {
	if div <= 0 {
		return nil, fmt.Errorf("scale by %d: %w", div, ErrNegative)
	}
	s := m.Clone()
	for k, d := range s.dist {
		if s.known[k] && d > 0 {
			s.dist[k] = int64(math.Round(float64(d) / float64(div)))
		}
	}
	return s, nil
}

// WithPhantom returns an (n+1)×(n+1) matrix whose extra last node is at
// distance 0 to and from every other node. Solving a closed tour on it and
// cutting the tour at the phantom yields an open path over the original nodes.
func (m *Matrix) WithPhantom() *Matrix {
	n := m.Size()
	e, _ := New(n + 1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			e.dist[i*e.n+j] = m.dist[i*n+j]
			e.known[i*e.n+j] = m.known[i*n+j]
		}
		e.known[i*e.n+n] = true
		e.known[n*e.n+i] = true
	}
	e.known[n*e.n+n] = true
	return e
}

// Stats returns the smallest and largest known non-zero distances. ok is
// false when the matrix has no such cell.
func (m *Matrix) Stats() (lo, hi int64, ok bool) {
	for k, d := range m.dist {
		if !m.known[k] || d == 0 {
			continue
		}
		if !ok || d < lo {
			lo = d
		}
		if !ok || d > hi {
			hi = d
		}
		ok = true
	}
	return lo, hi, ok
}
