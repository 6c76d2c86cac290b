// Package site finds flat, dry land for a settlement and subdivides it into
// building plots.
package site

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/settler/internal/world"
)

// ErrNoViableSite means no window satisfied the water constraint: the region
// has no usable flat, dry land.
var ErrNoViableSite = errors.New("site: no viable plot under water constraint")

// Plot is a square window of the heightfield scored for flatness and water.
type Plot struct {
	X             int     `json:"x"`
	Z             int     `json:"z"`
	Size          int     `json:"size"`
	Roughness     float64 `json:"roughness"`      // Population std dev of elevations
	WaterFraction float64 `json:"water_fraction"` // Scaled share of water cells
}

// Rect returns the plot's footprint.
func (p Plot) Rect() world.Rect {
	return world.Rect{X: p.X, Z: p.Z, Width: p.Size, Depth: p.Size}
}

func (p Plot) String() string {
	return fmt.Sprintf("Plot(%s, std=%.3f, water=%.4f)", p.Rect(), p.Roughness, p.WaterFraction)
}

// ScanParams configures a sliding-window scan.
type ScanParams struct {
	Window           int     // Side of the square window
	Stride           int     // Step between window offsets on each axis
	MaxWaterFraction float64 // Single-best mode accepts WaterFraction strictly below this
	WaterScale       float64 // Multiplier for masks sampled at reduced density (0 means 1)
}

func (p ScanParams) validate(region world.Rect) error {
	if p.Window <= 0 || p.Stride <= 0 {
		return fmt.Errorf("scan: window %d and stride %d must be positive", p.Window, p.Stride)
	}
	if p.Window > region.Width || p.Window > region.Depth {
		return fmt.Errorf("scan: window %d larger than region %s", p.Window, region)
	}
	return nil
}

func (p ScanParams) waterScale() float64 {
	if p.WaterScale == 0 {
		return 1
	}
	return p.WaterScale
}

// ScanBest returns the flattest window whose water fraction is below
// MaxWaterFraction. Ties keep the first window in scan order.
func ScanBest(hf *world.HeightField, p ScanParams) (Plot, error) {
	region := hf.Region()
	if err := p.validate(region); err != nil {
		return Plot{}, err
	}
	sums := newWindowSums(hf)

	var best Plot
	found := false
	for ox := 0; ox <= region.Width-p.Window; ox += p.Stride {
		for oz := 0; oz <= region.Depth-p.Window; oz += p.Stride {
			std, wet := sums.window(ox, oz, p.Window)
			frac := p.waterScale() * float64(wet) / float64(p.Window*p.Window)
			if frac >= p.MaxWaterFraction {
				continue
			}
			if !found || std < best.Roughness {
				best = Plot{
					X:             region.X + ox,
					Z:             region.Z + oz,
					Size:          p.Window,
					Roughness:     std,
					WaterFraction: frac,
				}
				found = true
			}
		}
	}

	if !found {
		return Plot{}, fmt.Errorf("%w: window %d over %s, max water %.4f",
			ErrNoViableSite, p.Window, region, p.MaxWaterFraction)
	}
	return best, nil
}

// ScanAll returns every window containing no water at all, in scan order.
// Roughness is recorded for ranking only.
func ScanAll(hf *world.HeightField, p ScanParams) (PlotSet, error) {
	region := hf.Region()
	if err := p.validate(region); err != nil {
		return nil, err
	}
	sums := newWindowSums(hf)

	var plots PlotSet
	for ox := 0; ox <= region.Width-p.Window; ox += p.Stride {
		for oz := 0; oz <= region.Depth-p.Window; oz += p.Stride {
			std, wet := sums.window(ox, oz, p.Window)
			if wet != 0 {
				continue
			}
			plots = append(plots, Plot{
				X:         region.X + ox,
				Z:         region.Z + oz,
				Size:      p.Window,
				Roughness: std,
			})
		}
	}
	return plots, nil
}

// windowSums holds summed-area tables of h, h² and water over a heightfield,
// so any window's statistics cost O(1). Tables have one extra leading row and
// column of zeros.
type windowSums struct {
	depth int // table stride: region depth + 1
	sum   []int64
	sumSq []int64
	water []int64
}

func newWindowSums(hf *world.HeightField) *windowSums {
	region := hf.Region()
	w, d := region.Width+1, region.Depth+1
	s := &windowSums{
		depth: d,
		sum:   make([]int64, w*d),
		sumSq: make([]int64, w*d),
		water: make([]int64, w*d),
	}

	for lx := 1; lx < w; lx++ {
		for lz := 1; lz < d; lz++ {
			// Coordinates come from the field's own region, so queries cannot fail.
			y, _ := hf.Height(region.X+lx-1, region.Z+lz-1)
			wet, _ := hf.IsWater(region.X+lx-1, region.Z+lz-1)

			i := lx*d + lz
			up, left, diag := (lx-1)*d+lz, lx*d+lz-1, (lx-1)*d+lz-1
			h := int64(y)
			s.sum[i] = h + s.sum[up] + s.sum[left] - s.sum[diag]
			s.sumSq[i] = h*h + s.sumSq[up] + s.sumSq[left] - s.sumSq[diag]
			var wv int64
			if wet {
				wv = 1
			}
			s.water[i] = wv + s.water[up] + s.water[left] - s.water[diag]
		}
	}
	return s
}

func (s *windowSums) rect(table []int64, ox, oz, size int) int64 {
	x1, z1 := ox+size, oz+size
	return table[x1*s.depth+z1] - table[ox*s.depth+z1] - table[x1*s.depth+oz] + table[ox*s.depth+oz]
}

// window returns the population std dev of elevations and the water cell count
// of the size×size window at local offset (ox, oz).
func (s *windowSums) window(ox, oz, size int) (float64, int) {
	n := int64(size * size)
	sum := s.rect(s.sum, ox, oz, size)
	sumSq := s.rect(s.sumSq, ox, oz, size)

	// n²·variance = n·Σh² − (Σh)², exact in integers.
	scaled := n*sumSq - sum*sum
	if scaled < 0 {
		scaled = 0
	}
	std := math.Sqrt(float64(scaled)) / float64(n)
	return std, int(s.rect(s.water, ox, oz, size))
}
