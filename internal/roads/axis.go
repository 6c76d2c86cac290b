package roads

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/settler/internal/world"
)

var (
	// ErrNoDoors is returned when there is nothing to connect.
	ErrNoDoors = errors.New("roads: no doors to fit")
	// ErrNoClearEndpoint means the endpoint scan left the region without
	// finding a column free of obstacles.
	ErrNoClearEndpoint = errors.New("roads: no clear highway endpoint")
)

// Axis is the least-squares line through the door positions in the XZ plane.
type Axis struct {
	MeanX, MeanZ float64
	R            float64 // Pearson correlation; 0 when undefined
	Slope        float64 // dZ/dX
	Vertical     bool    // all doors share one X; the line is X = MeanX
}

// FitAxis fits z = MeanZ + Slope·(x − MeanX) through the doors. With zero X
// variance the axis is vertical; with zero Z variance the slope is 0.
func FitAxis(doors []world.Vec3) (Axis, error) {
	if len(doors) == 0 {
		return Axis{}, ErrNoDoors
	}

	n := float64(len(doors))
	var a Axis
	for _, d := range doors {
		a.MeanX += float64(d.X)
		a.MeanZ += float64(d.Z)
	}
	a.MeanX /= n
	a.MeanZ /= n

	var sxx, szz, sxz float64
	for _, d := range doors {
		dx, dz := float64(d.X)-a.MeanX, float64(d.Z)-a.MeanZ
		sxx += dx * dx
		szz += dz * dz
		sxz += dx * dz
	}

	switch {
	case sxx == 0:
		a.Vertical = true
	case szz == 0:
		a.Slope = 0
	default:
		stdX, stdZ := math.Sqrt(sxx/n), math.Sqrt(szz/n)
		a.R = sxz / math.Sqrt(sxx*szz)
		a.Slope = a.R * (stdZ / stdX)
	}
	return a, nil
}

// ZAt returns the line's Z at x, truncated toward zero.
func (a Axis) ZAt(x int) int {
	return int(a.MeanZ - a.Slope*a.MeanX + a.Slope*float64(x))
}

// at returns the column at parameter t along the axis: X = t for a sloped
// axis, Z = t for a vertical one.
func (a Axis) at(t int) world.Column {
	if a.Vertical {
		return world.Column{X: int(a.MeanX), Z: t}
	}
	return world.Column{X: t, Z: a.ZAt(t)}
}

// Endpoints returns the two highway endpoints, each inset from the extreme
// doors along the axis. An endpoint on an obstacle steps forward one column
// at a time; leaving the region fails with ErrNoClearEndpoint.
func Endpoints(hf *world.HeightField, doors []world.Vec3, obstacles Obstacles, inset int) (world.Vec3, world.Vec3, error) {
	axis, err := FitAxis(doors)
	if err != nil {
		return world.Vec3{}, world.Vec3{}, err
	}

	lo, hi := math.MaxInt, math.MinInt
	for _, d := range doors {
		t := d.X
		if axis.Vertical {
			t = d.Z
		}
		lo = min(lo, t)
		hi = max(hi, t)
	}

	region := hf.Region()
	tMin, tMax := region.X, region.MaxX()-1
	if axis.Vertical {
		tMin, tMax = region.Z, region.MaxZ()-1
	}
	tLow := clamp(lo+inset, tMin, tMax)
	tHigh := clamp(hi-inset, tMin, tMax)

	tLow, err = clearAlong(hf, axis, obstacles, tLow, tMax)
	if err != nil {
		return world.Vec3{}, world.Vec3{}, fmt.Errorf("low endpoint: %w", err)
	}
	tHigh, err = clearAlong(hf, axis, obstacles, tHigh, tMax)
	if err != nil {
		return world.Vec3{}, world.Vec3{}, fmt.Errorf("high endpoint: %w", err)
	}
	if axis.at(tLow) == axis.at(tHigh) {
		if tHigh, err = clearAlong(hf, axis, obstacles, tHigh+1, tMax); err != nil {
			return world.Vec3{}, world.Vec3{}, fmt.Errorf("high endpoint: %w", err)
		}
	}

	low, err := surfaceAt(hf, axis.at(tLow))
	if err != nil {
		return world.Vec3{}, world.Vec3{}, err
	}
	high, err := surfaceAt(hf, axis.at(tHigh))
	if err != nil {
		return world.Vec3{}, world.Vec3{}, err
	}
	return low, high, nil
}

// clearAlong advances t until axis.at(t) is inside the region and not an obstacle.
func clearAlong(hf *world.HeightField, axis Axis, obstacles Obstacles, t, tMax int) (int, error) {
	for ; t <= tMax; t++ {
		c := axis.at(t)
		if !hf.Contains(c.X, c.Z) {
			// The fitted line can leave the region sideways before t runs out.
			continue
		}
		if !obstacles.Has(c) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: scanned to %d along axis", ErrNoClearEndpoint, tMax)
}

func surfaceAt(hf *world.HeightField, c world.Column) (world.Vec3, error) {
	y, err := hf.Surface(c.X, c.Z)
	if err != nil {
		return world.Vec3{}, err
	}
	return world.Vec3{X: c.X, Y: y, Z: c.Z}, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
