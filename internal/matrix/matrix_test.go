package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRowsUnknownMarker(t *testing.T) {
	m, err := FromRows([][]int64{
		{0, 10, -1},
		{10, 0, 20},
		{15, 20, 0},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Size())
	d, ok := m.At(0, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(10), d)
	assert.False(t, m.Known(0, 2))
	assert.True(t, m.Known(2, 0))
	assert.Equal(t, 5, m.KnownCount())
}

func TestFromRowsRejectsBadInput(t *testing.T) {
	_, err := FromRows(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = FromRows([][]int64{{0, 1}, {1}})
	assert.ErrorIs(t, err, ErrNonSquare)

	_, err = FromRows([][]int64{{0, -2}, {1, 0}})
	assert.ErrorIs(t, err, ErrNegative)
}

func TestZeroIsNotUnknown(t *testing.T) {
	m, err := FromRows([][]int64{{0, 0}, {-1, 0}})
	require.NoError(t, err)

	d, ok := m.At(0, 1)
	assert.True(t, ok)
	assert.Zero(t, d)
	assert.False(t, m.Known(1, 0))
}

func TestSetAndSetUnknown(t *testing.T) {
	m, err := New(2)
	require.NoError(t, err)
	assert.False(t, m.Known(0, 1))

	require.NoError(t, m.Set(0, 1, 7))
	assert.True(t, m.Known(0, 1))

	require.NoError(t, m.SetUnknown(0, 1))
	assert.False(t, m.Known(0, 1))

	assert.ErrorIs(t, m.Set(2, 0, 1), ErrOutOfRange)
	assert.ErrorIs(t, m.Set(0, 1, -5), ErrNegative)
	assert.ErrorIs(t, m.SetUnknown(-1, 0), ErrOutOfRange)

	_, ok := m.At(5, 5)
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	m, err := FromRows([][]int64{{0, 1}, {2, 0}})
	require.NoError(t, err)

	c := m.Clone()
	require.NoError(t, c.Set(0, 1, 99))

	d, _ := m.At(0, 1)
	assert.Equal(t, int64(1), d)
}

func TestRowsRoundTrip(t *testing.T) {
	rows := [][]int64{
		{0, 3, -1},
		{3, 0, 4},
		{-1, 4, 0},
	}
	m, err := FromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, rows, m.Rows())
}

func TestIsSymmetric(t *testing.T) {
	sym, err := FromRows([][]int64{{0, 1, -1}, {1, 0, 2}, {-1, 2, 0}})
	require.NoError(t, err)
	assert.True(t, sym.IsSymmetric())

	asym, err := FromRows([][]int64{{0, 1}, {2, 0}})
	require.NoError(t, err)
	assert.False(t, asym.IsSymmetric())

	halfKnown, err := FromRows([][]int64{{0, 1}, {-1, 0}})
	require.NoError(t, err)
	assert.False(t, halfKnown.IsSymmetric())
}

func TestSub(t *testing.T) {
	m, err := FromRows([][]int64{
		{0, 1, 2, 3},
		{1, 0, 4, 5},
		{2, 4, 0, -1},
		{3, 5, -1, 0},
	})
	require.NoError(t, err)

	s, err := m.Sub(2, 4)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{0, -1}, {-1, 0}}, s.Rows())

	_, err = m.Sub(3, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.Sub(0, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestScaleMetersToKilometres(t *testing.T) {
	m, err := FromRows([][]int64{
		{0, 1499, -1},
		{1500, 0, 625432},
		{-1, 625432, 0},
	})
	require.NoError(t, err)

	km, err := m.Scale(1000)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{
		{0, 1, -1},
		{2, 0, 625},
		{-1, 625, 0},
	}, km.Rows())

	_, err = m.Scale(0)
	assert.Error(t, err)
}

func TestWithPhantom(t *testing.T) {
	m, err := FromRows([][]int64{
		{0, 10, -1},
		{10, 0, 20},
		{-1, 20, 0},
	})
	require.NoError(t, err)

	e := m.WithPhantom()
	require.Equal(t, 4, e.Size())

	for i := 0; i < 3; i++ {
		d, ok := e.At(i, 3)
		assert.True(t, ok)
		assert.Zero(t, d)
		d, ok = e.At(3, i)
		assert.True(t, ok)
		assert.Zero(t, d)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want, wantOK := m.At(i, j)
			got, gotOK := e.At(i, j)
			assert.Equal(t, wantOK, gotOK)
			assert.Equal(t, want, got)
		}
	}
}

func TestStats(t *testing.T) {
	m, err := FromRows([][]int64{{0, 5, -1}, {7, 0, 3}, {-1, 12, 0}})
	require.NoError(t, err)

	lo, hi, ok := m.Stats()
	assert.True(t, ok)
	assert.Equal(t, int64(3), lo)
	assert.Equal(t, int64(12), hi)

	empty, _ := New(2)
	_, _, ok = empty.Stats()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	var m *Matrix
	assert.ErrorIs(t, m.Validate(), ErrEmpty)

	empty, _ := New(0)
	assert.ErrorIs(t, empty.Validate(), ErrEmpty)

	one, _ := New(1)
	assert.NoError(t, one.Validate())
}
