package site

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/talgya/settler/internal/world"
)

func TestOverlaps(t *testing.T) {
	a := Plot{X: 0, Z: 0, Size: 5}
	tests := []struct {
		name    string
		b       Plot
		padding int
		want    bool
	}{
		{"same", Plot{X: 0, Z: 0, Size: 5}, 0, true},
		{"touching edge", Plot{X: 5, Z: 0, Size: 5}, 0, false},
		{"touching edge padded", Plot{X: 5, Z: 0, Size: 5}, 1, true},
		{"gap of five, padding two", Plot{X: 10, Z: 0, Size: 5}, 2, false},
		{"gap of five, padding three", Plot{X: 10, Z: 0, Size: 5}, 3, true},
		{"x overlaps only", Plot{X: 2, Z: 20, Size: 5}, 3, false},
		{"z overlaps only", Plot{X: 20, Z: 2, Size: 5}, 3, false},
		{"diagonal", Plot{X: 6, Z: 6, Size: 5}, 1, true},
	}
	for _, tt := range tests {
		if got := Overlaps(a, tt.b, tt.padding); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		if got := Overlaps(tt.b, a, tt.padding); got != tt.want {
			t.Errorf("%s: Overlaps not symmetric", tt.name)
		}
	}
}

func TestFilterOverlappingGreedyOrder(t *testing.T) {
	set := PlotSet{
		{X: 10, Z: 10, Size: 5, Roughness: 0.1},
		{X: 12, Z: 12, Size: 5, Roughness: 0.2}, // overlaps the first
		{X: 30, Z: 10, Size: 5, Roughness: 0.3},
		{X: 16, Z: 10, Size: 5, Roughness: 0.4}, // within padding of the first
		{X: 10, Z: 30, Size: 5, Roughness: 0.5},
	}
	got := set.FilterOverlapping(3)
	want := PlotSet{set[0], set[2], set[4]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterOverlapping = %v, want %v", got, want)
	}
}

func TestSortByRoughnessIsStable(t *testing.T) {
	set := PlotSet{
		{X: 0, Roughness: 1},
		{X: 1, Roughness: 0.5},
		{X: 2, Roughness: 1},
		{X: 3, Roughness: 0.5},
	}
	set.SortByRoughness()
	order := []int{set[0].X, set[1].X, set[2].X, set[3].X}
	if !reflect.DeepEqual(order, []int{1, 3, 0, 2}) {
		t.Fatalf("order = %v, want [1 3 0 2]", order)
	}
}

func scannedCandidates(t *testing.T, seed int64) PlotSet {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	heights := randomGrid(rng, 40, 40, 64, 6)
	water := randomWater(rng, 40, 40, 0.02)
	hf := field(t, world.Column{X: -20, Z: 5}, heights, water)

	plots, err := ScanAll(hf, ScanParams{Window: 5, Stride: 1})
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	plots.SortByRoughness()
	return plots
}

func TestFilterOverlappingNoPaddedPairOverlaps(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		for _, padding := range []int{0, 1, 3} {
			filtered := scannedCandidates(t, seed).FilterOverlapping(padding)
			if len(filtered) == 0 {
				t.Fatalf("seed %d: nothing accepted", seed)
			}
			for i := range filtered {
				for j := i + 1; j < len(filtered); j++ {
					if Overlaps(filtered[i], filtered[j], padding) {
						t.Fatalf("seed %d padding %d: %v and %v overlap", seed, padding, filtered[i], filtered[j])
					}
				}
			}
		}
	}
}

func TestFilterOverlappingIdempotent(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		once := scannedCandidates(t, seed).FilterOverlapping(3)
		twice := once.FilterOverlapping(3)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("seed %d: second filter changed the set: %d -> %d plots", seed, len(once), len(twice))
		}
	}
}

func TestTop(t *testing.T) {
	set := PlotSet{{X: 1}, {X: 2}, {X: 3}}
	if got := set.Top(2); len(got) != 2 || got[1].X != 2 {
		t.Fatalf("Top(2) = %v", got)
	}
	if got := set.Top(10); len(got) != 3 {
		t.Fatalf("Top(10) = %v", got)
	}
}
