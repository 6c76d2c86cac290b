package roads

import (
	"errors"
	"reflect"
	"testing"

	"github.com/talgya/settler/internal/placement"
	"github.com/talgya/settler/internal/site"
	"github.com/talgya/settler/internal/world"
)

// building places a door on a flat field the way site.Promote does.
func building(hf *world.HeightField, rect world.Rect, facing world.Facing) site.Building {
	_, top, _ := hf.HeightRange(rect)
	return site.Building{
		Footprint: rect,
		Base:      top,
		Top:       top,
		Facing:    facing,
		Door:      site.DoorPosition(rect, facing, top-1),
	}
}

func twoBuildings(hf *world.HeightField) []site.Building {
	return []site.Building{
		building(hf, world.Rect{X: 1, Z: 3, Width: 2, Depth: 2}, world.North),   // door (2,2)
		building(hf, world.Rect{X: 16, Z: 15, Width: 2, Depth: 2}, world.South), // door (17,17)
	}
}

func TestPlanConnectsEveryDoor(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 20, Depth: 20}, 64)
	buildings := twoBuildings(hf)

	plan, err := NewPlanner(hf).Plan(buildings)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Low != (world.Vec3{X: 7, Y: 63, Z: 7}) || plan.High != (world.Vec3{X: 12, Y: 63, Z: 12}) {
		t.Fatalf("endpoints = %v, %v; want (7,63,7), (12,63,12)", plan.Low, plan.High)
	}
	if len(plan.Highway) != 9 {
		t.Fatalf("highway has %d cells, want 9", len(plan.Highway))
	}
	if len(plan.Spurs) != 2 || len(plan.Skipped) != 0 {
		t.Fatalf("spurs=%d skipped=%v, want 2 spurs and none skipped", len(plan.Spurs), plan.Skipped)
	}

	obstacles := BuildObstacles(buildings)
	checkPath(t, hf, plan.Low, plan.High, plan.Highway, obstacles)
	for i, s := range plan.Spurs {
		if s.Building != i {
			t.Fatalf("spur %d belongs to building %d", i, s.Building)
		}
		if len(s.Path) == 0 {
			t.Fatalf("spur %d is empty", i)
		}
		onHighway := false
		for _, c := range plan.Highway {
			onHighway = onHighway || c == s.Goal
		}
		if !onHighway {
			t.Fatalf("spur %d heads for %v, which is not a highway cell", i, s.Goal)
		}
		checkPath(t, hf, buildings[i].Door, s.Goal, s.Path, obstacles)
	}
}

func TestPlanTenByTen(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 10, Depth: 10}, 64)
	buildings := []site.Building{
		{Footprint: world.Rect{X: 0, Z: 0, Width: 2, Depth: 1}, Base: 64, Top: 64, Facing: world.South, Door: world.Vec3{X: 1, Y: 64, Z: 1}},
		{Footprint: world.Rect{X: 7, Z: 9, Width: 2, Depth: 1}, Base: 64, Top: 64, Facing: world.North, Door: world.Vec3{X: 8, Y: 64, Z: 8}},
	}

	plan, err := NewPlanner(hf).Plan(buildings)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Low != (world.Vec3{X: 6, Y: 63, Z: 6}) || plan.High != (world.Vec3{X: 3, Y: 63, Z: 3}) {
		t.Fatalf("endpoints = %v, %v; want (6,63,6), (3,63,3)", plan.Low, plan.High)
	}
	if len(plan.Highway) == 0 || len(plan.Spurs) != 2 {
		t.Fatalf("highway=%d spurs=%d, want a highway and two spurs", len(plan.Highway), len(plan.Spurs))
	}
	for _, s := range plan.Spurs {
		if len(s.Path) == 0 {
			t.Fatalf("spur for building %d is empty", s.Building)
		}
	}

	var rec placement.Recorder
	if _, err := plan.Emit(&rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for _, p := range rec.Placements {
		if !hf.Contains(p.X, p.Z) {
			t.Fatalf("placement %v outside the grid", p.Pos())
		}
	}
}

func TestPlanSkipsEnclosedDoor(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 20, Depth: 20}, 64)
	buildings := append(twoBuildings(hf),
		// Door at (0,11) faces off the map; its other neighbours are margin.
		building(hf, world.Rect{X: 1, Z: 10, Width: 2, Depth: 2}, world.West),
	)

	plan, err := NewPlanner(hf).Plan(buildings)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !reflect.DeepEqual(plan.Skipped, []int{2}) {
		t.Fatalf("skipped = %v, want [2]", plan.Skipped)
	}
	if len(plan.Spurs) != 2 || plan.Spurs[0].Building != 0 || plan.Spurs[1].Building != 1 {
		t.Fatalf("spurs = %+v, want buildings 0 and 1", plan.Spurs)
	}
}

func TestPlanNoHighway(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 30, Depth: 20}, 64)
	buildings := []site.Building{
		building(hf, world.Rect{X: 12, Z: 0, Width: 2, Depth: 20}, world.East), // wall across the map
		building(hf, world.Rect{X: 2, Z: 9, Width: 2, Depth: 2}, world.West),
		building(hf, world.Rect{X: 26, Z: 9, Width: 2, Depth: 2}, world.East),
	}

	_, err := NewPlanner(hf).Plan(buildings)
	if !errors.Is(err, ErrNoHighway) {
		t.Fatalf("err = %v, want ErrNoHighway", err)
	}
}

func TestPlanNoBuildings(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 8, Depth: 8}, 64)
	if _, err := NewPlanner(hf).Plan(nil); !errors.Is(err, ErrNoDoors) {
		t.Fatalf("err = %v, want ErrNoDoors", err)
	}
}

func TestPlanDeterministic(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 20, Depth: 20}, 64)
	buildings := append(twoBuildings(hf),
		building(hf, world.Rect{X: 14, Z: 2, Width: 2, Depth: 2}, world.West),
		building(hf, world.Rect{X: 3, Z: 14, Width: 2, Depth: 2}, world.East),
	)

	first, err := NewPlanner(hf).Plan(buildings)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := NewPlanner(hf).Plan(buildings)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestEmitHighwayFirst(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 20, Depth: 20}, 64)
	plan, err := NewPlanner(hf).Plan(twoBuildings(hf))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	var rec placement.Recorder
	n, err := plan.Emit(&rec)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if n != plan.Cells() || len(rec.Placements) != n {
		t.Fatalf("emitted %d (recorded %d), want %d", n, len(rec.Placements), plan.Cells())
	}
	for i, p := range rec.Placements {
		want := "minecraft:red_concrete"
		if i < len(plan.Highway) {
			want = "minecraft:blue_concrete"
			if p.Pos() != plan.Highway[i] {
				t.Fatalf("placement %d at %v, want highway cell %v", i, p.Pos(), plan.Highway[i])
			}
		}
		if p.Material != want {
			t.Fatalf("placement %d is %s, want %s", i, p.Material, want)
		}
	}
}

func TestEmitStopsOnSinkError(t *testing.T) {
	hf := world.Flat(world.Rect{Width: 20, Depth: 20}, 64)
	plan, err := NewPlanner(hf).Plan(twoBuildings(hf))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	full := errors.New("sink full")
	calls := 0
	sink := placement.SinkFunc(func(world.Vec3, string) error {
		calls++
		if calls > 3 {
			return full
		}
		return nil
	})
	n, err := plan.Emit(sink)
	if !errors.Is(err, full) || n != 3 {
		t.Fatalf("n=%d err=%v, want 3 and sink full", n, err)
	}
}

func TestNearest(t *testing.T) {
	network := []world.Vec3{{X: 5, Y: 70, Z: 0}, {X: 0, Y: 63, Z: 5}, {X: 1, Y: 63, Z: 1}, {X: 2, Y: 63, Z: 0}}

	tests := []struct {
		name string
		pos  world.Vec3
		want world.Vec3
	}{
		{"closest", world.Vec3{X: 0, Y: 63, Z: 0}, world.Vec3{X: 1, Y: 63, Z: 1}},
		{"excludes itself", world.Vec3{X: 1, Y: 63, Z: 1}, world.Vec3{X: 2, Y: 63, Z: 0}},
		{"height counts", world.Vec3{X: 3, Y: 70, Z: 0}, world.Vec3{X: 5, Y: 70, Z: 0}},
		{"tie keeps earliest", world.Vec3{X: 3, Y: 63, Z: 3}, world.Vec3{X: 1, Y: 63, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Nearest(tt.pos, network)
			if !ok || got != tt.want {
				t.Fatalf("Nearest(%v) = %v, %v; want %v", tt.pos, got, ok, tt.want)
			}
		})
	}

	if _, ok := Nearest(world.Vec3{}, nil); ok {
		t.Fatalf("empty network should find nothing")
	}
	if _, ok := Nearest(world.Vec3{X: 1}, []world.Vec3{{X: 1}}); ok {
		t.Fatalf("a network holding only pos should find nothing")
	}
}
