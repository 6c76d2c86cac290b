// Package world provides the heightfield, terrain, and coordinate types shared
// by site selection and road planning.
// X and Z are horizontal, Y is elevation.
package world

import "fmt"

// Column is a horizontal grid cell.
type Column struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Vec3 is a block position.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Column drops the elevation.
func (v Vec3) Column() Column {
	return Column{X: v.X, Z: v.Z}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// ColumnNeighborDirections defines the four horizontal neighbour offsets.
// The order is fixed so that searches expand deterministically.
var ColumnNeighborDirections = [4]Column{
	{X: 1, Z: 0},
	{X: 0, Z: 1},
	{X: -1, Z: 0},
	{X: 0, Z: -1},
}

// Neighbors returns the four adjacent columns.
func (c Column) Neighbors() [4]Column {
	var result [4]Column
	for i, dir := range ColumnNeighborDirections {
		result[i] = Column{X: c.X + dir.X, Z: c.Z + dir.Z}
	}
	return result
}

// Manhattan returns |dx| + |dz|.
func Manhattan(a, b Column) int {
	return abs(a.X-b.X) + abs(a.Z-b.Z)
}

// Manhattan3 returns |dx| + |dy| + |dz|.
func Manhattan3(a, b Vec3) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z)
}

// Facing is the horizontal direction a building's door opens towards.
type Facing uint8

const (
	North Facing = iota // -Z
	South               // +Z
	East                // +X
	West                // -X
)

// Offset returns the unit step in the facing direction.
func (f Facing) Offset() Column {
	switch f {
	case North:
		return Column{Z: -1}
	case South:
		return Column{Z: 1}
	case East:
		return Column{X: 1}
	default:
		return Column{X: -1}
	}
}

// Opposite returns the reverse direction.
func (f Facing) Opposite() Facing {
	switch f {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

// String returns the lowercase direction name.
func (f Facing) String() string {
	switch f {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// ParseFacing converts a direction name back into a Facing.
func ParseFacing(s string) (Facing, error) {
	switch s {
	case "north":
		return North, nil
	case "south":
		return South, nil
	case "east":
		return East, nil
	case "west":
		return West, nil
	}
	return 0, fmt.Errorf("unknown facing %q", s)
}

// MarshalText encodes the facing by name.
func (f Facing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a facing name.
func (f *Facing) UnmarshalText(b []byte) error {
	parsed, err := ParseFacing(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Rect is an axis-aligned rectangle of columns covering [X, X+Width) × [Z, Z+Depth).
type Rect struct {
	X     int `json:"x"`
	Z     int `json:"z"`
	Width int `json:"width"`
	Depth int `json:"depth"`
}

// MaxX returns the exclusive upper X bound.
func (r Rect) MaxX() int { return r.X + r.Width }

// MaxZ returns the exclusive upper Z bound.
func (r Rect) MaxZ() int { return r.Z + r.Depth }

// Contains reports whether the column lies inside the rectangle.
func (r Rect) Contains(c Column) bool {
	return c.X >= r.X && c.X < r.MaxX() && c.Z >= r.Z && c.Z < r.MaxZ()
}

// Pad grows the rectangle by n cells on every side.
func (r Rect) Pad(n int) Rect {
	return Rect{X: r.X - n, Z: r.Z - n, Width: r.Width + 2*n, Depth: r.Depth + 2*n}
}

// Intersects reports whether the two rectangles share at least one column.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.MaxX() && o.X < r.MaxX() && r.Z < o.MaxZ() && o.Z < r.MaxZ()
}

// Center returns the middle column, rounded down.
func (r Rect) Center() Column {
	return Column{X: r.X + r.Width/2, Z: r.Z + r.Depth/2}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d)x[%d,%d)", r.X, r.MaxX(), r.Z, r.MaxZ())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
