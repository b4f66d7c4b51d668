package distance

import "fmt"

// Block is a rectangular part of the request matrix. Bounds are half-open.
type Block struct {
	RowFrom, RowTo int
	ColFrom, ColTo int
}

// Rows returns the number of origins in the block.
func (b Block) Rows() int { return b.RowTo - b.RowFrom }

// Cols returns the number of destinations in the block.
func (b Block) Cols() int { return b.ColTo - b.ColFrom }

func (b Block) String() string {
	return fmt.Sprintf("[%d,%d)x[%d,%d)", b.RowFrom, b.RowTo, b.ColFrom, b.ColTo)
}

// ValidateStep reports whether a step×step block fits a single request.
func ValidateStep(step int) error {
	if step < 1 {
		return fmt.Errorf("step %d: %w", step, ErrInvalidStep)
	}
	if step > MaxOrigins || step*step > MaxElements {
		return fmt.Errorf("step %d exceeds %d elements or %d origins: %w", step, MaxElements, MaxOrigins, ErrInvalidStep)
	}
	return nil
}

// Partition tiles an n×n matrix with blocks of at most step rows and step
// columns, row-major. Edge blocks are truncated.
func Partition(n, step int) ([]Block, error) {
	if err := ValidateStep(step); err != nil {
		return nil, err
	}
	var blocks []Block
	for i := 0; i < n; i += step {
		for j := 0; j < n; j += step {
			blocks = append(blocks, Block{
				RowFrom: i, RowTo: min(i+step, n),
				ColFrom: j, ColTo: min(j+step, n),
			})
		}
	}
	return blocks, nil
}
