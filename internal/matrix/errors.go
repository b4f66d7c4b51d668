package matrix

import "errors"

var (
	// ErrEmpty is returned for a nil or zero-sized matrix
	ErrEmpty = errors.New("matrix: empty matrix")

	// ErrNonSquare is returned when a row length differs from the row count
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrNegative is returned for a negative distance that is not the -1 unknown marker
	ErrNegative = errors.New("matrix: negative distance")

	// ErrFractional is returned when a persisted distance is not an integer
	ErrFractional = errors.New("matrix: distance is not an integer")

	// ErrOutOfRange is returned when an index is outside [0, n)
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrUnsupportedFormat is returned by ParseTSPLIB for instances it cannot read
	ErrUnsupportedFormat = errors.New("matrix: unsupported format")
)
