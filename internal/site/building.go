package site

import (
	"fmt"

	"github.com/talgya/settler/internal/world"
)

// Building is a plot promoted to a building site.
type Building struct {
	Footprint world.Rect   `json:"footprint"`
	Base      int          `json:"base"` // Lowest ground elevation under the footprint
	Top       int          `json:"top"`  // Highest ground elevation; the foundation reference
	Facing    world.Facing `json:"facing"`
	Door      world.Vec3   `json:"door"`
	Roughness float64      `json:"roughness"`
}

// Front returns the column directly in front of the door.
func (b Building) Front() world.Column {
	off := b.Facing.Offset()
	return world.Column{X: b.Door.X + off.X, Z: b.Door.Z + off.Z}
}

func (b Building) String() string {
	return fmt.Sprintf("Building(%s, facing=%s, door=%s)", b.Footprint, b.Facing, b.Door)
}

// Promote turns a plot into a building facing the given direction. The door sits
// just outside the middle of the facing edge, one block below the highest ground
// under the footprint.
func Promote(hf *world.HeightField, p Plot, facing world.Facing) (Building, error) {
	rect := p.Rect()
	lo, hi, err := hf.HeightRange(rect)
	if err != nil {
		return Building{}, fmt.Errorf("promote %s: %w", p, err)
	}

	return Building{
		Footprint: rect,
		Base:      lo,
		Top:       hi,
		Facing:    facing,
		Door:      DoorPosition(rect, facing, hi-1),
		Roughness: p.Roughness,
	}, nil
}

// DoorPosition returns the cell just outside the middle of the rect edge on
// the facing side, at elevation y.
func DoorPosition(rect world.Rect, facing world.Facing, y int) world.Vec3 {
	mid := rect.Center()
	switch facing {
	case world.North:
		return world.Vec3{X: mid.X, Y: y, Z: rect.Z - 1}
	case world.South:
		return world.Vec3{X: mid.X, Y: y, Z: rect.MaxZ()}
	case world.East:
		return world.Vec3{X: rect.MaxX(), Y: y, Z: mid.Z}
	default:
		return world.Vec3{X: rect.X - 1, Y: y, Z: mid.Z}
	}
}

// FacingToward picks the direction from the rect's centre towards target
// along the dominant axis. Ties favour the X axis.
func FacingToward(rect world.Rect, target world.Column) world.Facing {
	c := rect.Center()
	dx, dz := target.X-c.X, target.Z-c.Z
	if abs(dx) >= abs(dz) {
		if dx < 0 {
			return world.West
		}
		return world.East
	}
	if dz < 0 {
		return world.North
	}
	return world.South
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
