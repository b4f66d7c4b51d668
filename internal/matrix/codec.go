package matrix

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// MarshalJSON encodes the matrix as rows of numbers with null for unknown cells.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	rows := make([][]*int64, m.Size())
	for i := range rows {
		rows[i] = make([]*int64, m.n)
		for j := range rows[i] {
			if d, ok := m.At(i, j); ok {
				rows[i][j] = &d
			}
		}
	}
	return json.Marshal(rows)
}

// UnmarshalJSON decodes rows of numbers. Both null and -1 mean unknown.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var rows [][]*float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrEmpty
	}

	parsed, _ := New(len(rows))
	for i, row := range rows {
		if len(row) != parsed.n {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), parsed.n, ErrNonSquare)
		}
		for j, v := range row {
			if v == nil || *v == float64(Unknown) {
				continue
			}
			if *v != math.Trunc(*v) || math.IsInf(*v, 0) {
				return fmt.Errorf("cell (%d,%d) = %v: %w", i, j, *v, ErrFractional)
			}
			if err := parsed.Set(i, j, int64(*v)); err != nil {
				return err
			}
		}
	}

	*m = *parsed
	return nil
}

// Load reads a matrix persisted as JSON rows.
func Load(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}

	var m Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse matrix file %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the matrix as JSON rows, replacing path atomically.
func Save(path string, m *Matrix) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal matrix: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp matrix file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp matrix file: %w", err)
	}

	return nil
}
