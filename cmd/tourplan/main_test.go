package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-planner/internal/itinerary"
	"tour-planner/internal/tsp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadNames(t *testing.T) {
	t.Run("lines", func(t *testing.T) {
		names, err := readNames(writeFile(t, "names.txt", "Lanzhou\n\n  Xining \nDunhuang\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Lanzhou", "Xining", "Dunhuang"}, names)
	})

	t.Run("json", func(t *testing.T) {
		names, err := readNames(writeFile(t, "names.json", ` ["A", "B, C"]`))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B, C"}, names)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := readNames(writeFile(t, "names.json", `["A",`))
		assert.Error(t, err)
	})
}

func TestReadMatrix(t *testing.T) {
	t.Run("json rows", func(t *testing.T) {
		m, err := readMatrix(writeFile(t, "m.json", `[[0, 5, null], [5, 0, 2], [-1, 2, 0]]`), false)
		require.NoError(t, err)
		assert.Equal(t, 3, m.Size())
		assert.False(t, m.Known(0, 2))
	})

	tsplib := "NAME: t\nTYPE: ATSP\nDIMENSION: 2\nEDGE_WEIGHT_TYPE: EXPLICIT\n" +
		"EDGE_WEIGHT_FORMAT: FULL_MATRIX\nEDGE_WEIGHT_SECTION\n0 5\n7 0\nEOF\n"

	t.Run("tsplib by extension", func(t *testing.T) {
		m, err := readMatrix(writeFile(t, "m.tsp", tsplib), false)
		require.NoError(t, err)
		d, ok := m.At(1, 0)
		require.True(t, ok)
		assert.Equal(t, int64(7), d)
	})

	t.Run("tsplib by flag", func(t *testing.T) {
		m, err := readMatrix(writeFile(t, "m.txt", tsplib), true)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Size())
	})
}

func TestSegments(t *testing.T) {
	segs, err := segments(20, "6", "1")
	require.NoError(t, err)
	assert.Equal(t, []itinerary.Segment{
		{From: 0, To: 6},
		{From: 6, To: 20, Reverse: true},
	}, segs)

	segs, err = segments(5, "", "")
	require.NoError(t, err)
	assert.Equal(t, []itinerary.Segment{{From: 0, To: 5}}, segs)

	_, err = segments(20, "6", "2")
	assert.Error(t, err)

	_, err = segments(20, "six", "")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(fmt.Errorf("solve: %w", tsp.ErrInfeasible)))
	assert.Equal(t, 3, exitCode(fmt.Errorf("solve: %w", tsp.ErrIncomplete)))
	assert.Equal(t, 1, exitCode(tsp.ErrSolver))
	assert.Equal(t, 1, exitCode(os.ErrNotExist))
}
