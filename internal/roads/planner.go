package roads

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/talgya/settler/internal/placement"
	"github.com/talgya/settler/internal/site"
	"github.com/talgya/settler/internal/world"
)

// ErrNoHighway means the two trunk endpoints cannot be connected.
var ErrNoHighway = errors.New("roads: no highway path between endpoints")

// DefaultInset is how far the highway endpoints sit inside the outermost doors.
const DefaultInset = 5

// Materials names the blocks painted for each kind of road.
type Materials struct {
	Highway string `yaml:"highway"`
	Spur    string `yaml:"spur"`
}

// DefaultMaterials returns the concrete colours used to tell highway from spurs.
func DefaultMaterials() Materials {
	return Materials{
		Highway: "minecraft:blue_concrete",
		Spur:    "minecraft:red_concrete",
	}
}

// Planner builds road plans over one heightfield snapshot.
type Planner struct {
	Field     *world.HeightField
	Inset     int
	Materials Materials
}

// NewPlanner returns a planner with the default inset and materials.
func NewPlanner(hf *world.HeightField) *Planner {
	return &Planner{
		Field:     hf,
		Inset:     DefaultInset,
		Materials: DefaultMaterials(),
	}
}

// Spur connects one building's door to the highway.
type Spur struct {
	Building int        `json:"building"` // Index into the planned buildings
	Goal     world.Vec3 `json:"goal"`     // Highway cell the spur heads for
	Path     Path       `json:"path"`
}

// Plan is a complete road network for one settlement.
type Plan struct {
	Low       world.Vec3 `json:"low"`
	High      world.Vec3 `json:"high"`
	Highway   Path       `json:"highway"`
	Spurs     []Spur     `json:"spurs"`
	Skipped   []int      `json:"skipped,omitempty"` // Buildings with no spur path
	Obstacles int        `json:"obstacles"`

	materials Materials
}

// Plan computes the highway and one spur per building. A missing highway
// aborts with ErrNoHighway; a building that cannot reach the highway is
// logged and skipped.
func (p *Planner) Plan(buildings []site.Building) (*Plan, error) {
	if len(buildings) == 0 {
		return nil, ErrNoDoors
	}

	doors := make([]world.Vec3, len(buildings))
	for i, b := range buildings {
		doors[i] = b.Door
	}
	obstacles := BuildObstacles(buildings)

	low, high, err := Endpoints(p.Field, doors, obstacles, p.Inset)
	if err != nil {
		return nil, fmt.Errorf("highway endpoints: %w", err)
	}

	highway, ok := FindPath(p.Field, low, high, obstacles)
	if !ok {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoHighway, low, high)
	}
	slog.Info("highway planned", "from", low.String(), "to", high.String(), "cells", len(highway))

	network := []world.Vec3(highway)
	if len(network) == 0 {
		network = []world.Vec3{low, high}
	}

	plan := &Plan{
		Low:       low,
		High:      high,
		Highway:   highway,
		Obstacles: len(obstacles),
		materials: p.Materials,
	}

	// Spur searches only read the field and obstacle set.
	type result struct {
		spur Spur
		ok   bool
	}
	results := make([]result, len(buildings))
	var wg sync.WaitGroup
	for i, b := range buildings {
		wg.Add(1)
		go func(i int, door world.Vec3) {
			defer wg.Done()
			goal, found := Nearest(door, network)
			if !found {
				return
			}
			path, ok := FindPath(p.Field, door, goal, obstacles)
			results[i] = result{spur: Spur{Building: i, Goal: goal, Path: path}, ok: ok}
		}(i, b.Door)
	}
	wg.Wait()

	for i, r := range results {
		if !r.ok {
			slog.Warn("no spur path, skipping building", "building", i, "door", buildings[i].Door.String())
			plan.Skipped = append(plan.Skipped, i)
			continue
		}
		plan.Spurs = append(plan.Spurs, r.spur)
	}
	return plan, nil
}

// Nearest returns the network cell closest to pos by X+Y+Z Manhattan distance,
// never pos itself. Ties keep the earliest cell.
func Nearest(pos world.Vec3, network []world.Vec3) (world.Vec3, bool) {
	var best world.Vec3
	bestDist := math.MaxInt
	for _, c := range network {
		if c == pos {
			continue
		}
		if d := world.Manhattan3(pos, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist != math.MaxInt
}

// Emit hands every road cell to the sink: the highway first, then each spur in
// building order. Cells shared by several roads are emitted each time.
func (pl *Plan) Emit(sink placement.Sink) (int, error) {
	n := 0
	for _, c := range pl.Highway {
		if err := sink.Place(c, pl.materials.Highway); err != nil {
			return n, fmt.Errorf("place highway %s: %w", c, err)
		}
		n++
	}
	for _, s := range pl.Spurs {
		for _, c := range s.Path {
			if err := sink.Place(c, pl.materials.Spur); err != nil {
				return n, fmt.Errorf("place spur %d %s: %w", s.Building, c, err)
			}
			n++
		}
	}
	return n, nil
}

// Cells returns the number of placements Emit will make.
func (pl *Plan) Cells() int {
	n := len(pl.Highway)
	for _, s := range pl.Spurs {
		n += len(s.Path)
	}
	return n
}
