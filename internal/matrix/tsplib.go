package matrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseTSPLIB reads an explicit TSPLIB instance (TSP or ATSP) stored as
// EDGE_WEIGHT_FORMAT FULL_MATRIX. Negative weights are treated like in
// FromRows: -1 is unknown, anything lower is rejected.
func ParseTSPLIB(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		dimension int
		format    = "FULL_MATRIX"
		inWeights bool
		values    []int64
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !inWeights {
			if line == "EDGE_WEIGHT_SECTION" {
				if dimension <= 0 {
					return nil, fmt.Errorf("weights before DIMENSION: %w", ErrUnsupportedFormat)
				}
				if format != "FULL_MATRIX" {
					return nil, fmt.Errorf("edge weight format %s: %w", format, ErrUnsupportedFormat)
				}
				inWeights = true
				continue
			}

			key, value, found := strings.Cut(line, ":")
			if !found {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)

			switch key {
			case "DIMENSION":
				n, err := strconv.Atoi(value)
				if err != nil || n <= 0 {
					return nil, fmt.Errorf("dimension %q: %w", value, ErrUnsupportedFormat)
				}
				dimension = n
			case "EDGE_WEIGHT_TYPE":
				if value != "EXPLICIT" {
					return nil, fmt.Errorf("edge weight type %s: %w", value, ErrUnsupportedFormat)
				}
			case "EDGE_WEIGHT_FORMAT":
				format = value
			}
			continue
		}

		if line == "EOF" || strings.HasSuffix(line, "_SECTION") {
			break
		}
		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("weight %q: %w", field, ErrFractional)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read TSPLIB instance: %w", err)
	}

	if !inWeights {
		return nil, fmt.Errorf("missing EDGE_WEIGHT_SECTION: %w", ErrUnsupportedFormat)
	}
	if len(values) != dimension*dimension {
		return nil, fmt.Errorf("got %d weights for dimension %d: %w", len(values), dimension, ErrNonSquare)
	}

	rows := make([][]int64, dimension)
	for i := range rows {
		rows[i] = values[i*dimension : (i+1)*dimension]
	}
	return FromRows(rows)
}
