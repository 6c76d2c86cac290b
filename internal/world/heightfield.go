package world

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for any query outside the loaded region.
	ErrOutOfBounds = errors.New("world: coordinate out of bounds")
	// ErrShapeMismatch is returned when heights and water mask differ in shape.
	ErrShapeMismatch = errors.New("world: heightmap and water mask shapes differ")
)

// HeightField is a read-only snapshot of surface elevations and a water mask
// over a rectangular region. Cells are stored x-major, like a [x][z] grid.
type HeightField struct {
	region  Rect
	heights []int
	water   []bool
}

// NewHeightField copies the given [x][z] grids into a HeightField whose
// begin corner is origin.
func NewHeightField(origin Column, heights [][]int, water [][]bool) (*HeightField, error) {
	width := len(heights)
	if width == 0 {
		return nil, fmt.Errorf("empty heightmap: %w", ErrShapeMismatch)
	}
	depth := len(heights[0])
	if depth == 0 || len(water) != width {
		return nil, ErrShapeMismatch
	}

	hf := &HeightField{
		region:  Rect{X: origin.X, Z: origin.Z, Width: width, Depth: depth},
		heights: make([]int, 0, width*depth),
		water:   make([]bool, 0, width*depth),
	}
	for x := 0; x < width; x++ {
		if len(heights[x]) != depth || len(water[x]) != depth {
			return nil, fmt.Errorf("row %d: %w", x, ErrShapeMismatch)
		}
		hf.heights = append(hf.heights, heights[x]...)
		hf.water = append(hf.water, water[x]...)
	}
	return hf, nil
}

// Flat returns a dry HeightField of uniform elevation.
func Flat(region Rect, height int) *HeightField {
	n := region.Width * region.Depth
	hf := &HeightField{
		region:  region,
		heights: make([]int, n),
		water:   make([]bool, n),
	}
	for i := range hf.heights {
		hf.heights[i] = height
	}
	return hf
}

// Region returns the covered rectangle.
func (h *HeightField) Region() Rect {
	return h.region
}

// Contains reports whether (x, z) lies inside the region.
func (h *HeightField) Contains(x, z int) bool {
	return h.region.Contains(Column{X: x, Z: z})
}

func (h *HeightField) index(x, z int) (int, error) {
	if !h.Contains(x, z) {
		return 0, fmt.Errorf("%w: (%d,%d) outside %s", ErrOutOfBounds, x, z, h.region)
	}
	return (x-h.region.X)*h.region.Depth + (z - h.region.Z), nil
}

// Height returns the surface elevation at (x, z): the first free block above ground.
func (h *HeightField) Height(x, z int) (int, error) {
	i, err := h.index(x, z)
	if err != nil {
		return 0, err
	}
	return h.heights[i], nil
}

// Surface returns the elevation of the topmost solid block, one below Height.
func (h *HeightField) Surface(x, z int) (int, error) {
	y, err := h.Height(x, z)
	if err != nil {
		return 0, err
	}
	return y - 1, nil
}

// IsWater reports whether the top block at (x, z) is water.
func (h *HeightField) IsWater(x, z int) (bool, error) {
	i, err := h.index(x, z)
	if err != nil {
		return false, err
	}
	return h.water[i], nil
}

// Sub returns a copy of the window [x, x+w) × [z, z+d). World coordinates are kept.
func (h *HeightField) Sub(x, z, w, d int) (*HeightField, error) {
	win := Rect{X: x, Z: z, Width: w, Depth: d}
	if w <= 0 || d <= 0 || !h.Contains(x, z) || !h.Contains(win.MaxX()-1, win.MaxZ()-1) {
		return nil, fmt.Errorf("%w: window %s outside %s", ErrOutOfBounds, win, h.region)
	}

	sub := &HeightField{
		region:  win,
		heights: make([]int, 0, w*d),
		water:   make([]bool, 0, w*d),
	}
	for dx := 0; dx < w; dx++ {
		start := (x-h.region.X+dx)*h.region.Depth + (z - h.region.Z)
		sub.heights = append(sub.heights, h.heights[start:start+d]...)
		sub.water = append(sub.water, h.water[start:start+d]...)
	}
	return sub, nil
}

// HeightRange returns the lowest and highest elevation inside rect.
func (h *HeightField) HeightRange(rect Rect) (lo, hi int, err error) {
	for x := rect.X; x < rect.MaxX(); x++ {
		for z := rect.Z; z < rect.MaxZ(); z++ {
			y, err := h.Height(x, z)
			if err != nil {
				return 0, 0, err
			}
			if x == rect.X && z == rect.Z {
				lo, hi = y, y
				continue
			}
			lo = min(lo, y)
			hi = max(hi, y)
		}
	}
	return lo, hi, nil
}

// WaterCount returns the number of water cells.
func (h *HeightField) WaterCount() int {
	n := 0
	for _, w := range h.water {
		if w {
			n++
		}
	}
	return n
}

// String returns a summary of the field.
func (h *HeightField) String() string {
	return fmt.Sprintf("HeightField(region=%s, water=%d)", h.region, h.WaterCount())
}
