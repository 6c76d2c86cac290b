package world

import (
	"fmt"
	"strings"
)

// BlockSource answers block queries against a loaded world region.
type BlockSource interface {
	Block(x, y, z int) (string, error)
}

// MapWater samples every rowStride-th X row of region and flags columns whose
// top block is water. Unsampled rows stay dry, so a scan over the result should
// scale its water fraction by rowStride.
func MapWater(src BlockSource, region Rect, heights [][]int, rowStride int) ([][]bool, error) {
	if rowStride <= 0 {
		return nil, fmt.Errorf("map water: row stride must be positive, got %d", rowStride)
	}
	if len(heights) != region.Width {
		return nil, fmt.Errorf("map water: %w", ErrShapeMismatch)
	}

	water := make([][]bool, region.Width)
	for x := range water {
		water[x] = make([]bool, region.Depth)
	}

	for lx := 0; lx < region.Width; lx += rowStride {
		if len(heights[lx]) != region.Depth {
			return nil, fmt.Errorf("map water: row %d: %w", lx, ErrShapeMismatch)
		}
		for lz := 0; lz < region.Depth; lz++ {
			block, err := src.Block(region.X+lx, heights[lx][lz]-1, region.Z+lz)
			if err != nil {
				return nil, fmt.Errorf("map water: %w", err)
			}
			if strings.Contains(block, "water") {
				water[lx][lz] = true
			}
		}
	}
	return water, nil
}
