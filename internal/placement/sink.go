// Package placement carries planned road cells to whatever paints them.
package placement

import "github.com/talgya/settler/internal/world"

// Sink places one block. Implementations must tolerate the same position
// arriving more than once.
type Sink interface {
	Place(pos world.Vec3, material string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(pos world.Vec3, material string) error

// Place calls f.
func (f SinkFunc) Place(pos world.Vec3, material string) error { return f(pos, material) }

// Placement is one emitted block.
type Placement struct {
	X        int    `json:"x" db:"x"`
	Y        int    `json:"y" db:"y"`
	Z        int    `json:"z" db:"z"`
	Material string `json:"material" db:"material"`
}

// Pos returns the placement's position.
func (p Placement) Pos() world.Vec3 {
	return world.Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// Recorder keeps placements in memory, in arrival order.
type Recorder struct {
	Placements []Placement
}

// Place appends the placement.
func (r *Recorder) Place(pos world.Vec3, material string) error {
	r.Placements = append(r.Placements, Placement{X: pos.X, Y: pos.Y, Z: pos.Z, Material: material})
	return nil
}

// Distinct returns the number of different positions recorded.
func (r *Recorder) Distinct() int {
	seen := make(map[world.Vec3]struct{}, len(r.Placements))
	for _, p := range r.Placements {
		seen[p.Pos()] = struct{}{}
	}
	return len(seen)
}

type tee []Sink

// Tee returns a sink that forwards every placement to each sink in order,
// stopping at the first error.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Place(pos world.Vec3, material string) error {
	for _, s := range t {
		if err := s.Place(pos, material); err != nil {
			return err
		}
	}
	return nil
}
