package site

import "sort"

// PlotSet is an ordered collection of candidate plots.
type PlotSet []Plot

// SortByRoughness orders the set flattest first. The sort is stable, so equally
// rough plots keep their scan order.
func (s PlotSet) SortByRoughness() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Roughness < s[j].Roughness
	})
}

// FilterOverlapping greedily accepts plots in order, rejecting any plot whose
// padded rectangle intersects the padded rectangle of an already accepted plot.
// The receiver should already be sorted by roughness.
func (s PlotSet) FilterOverlapping(padding int) PlotSet {
	var accepted PlotSet
	for _, p := range s {
		if overlapsAny(p, accepted, padding) {
			continue
		}
		accepted = append(accepted, p)
	}
	return accepted
}

// Overlaps reports whether the padded footprints of a and b intersect on both axes.
func Overlaps(a, b Plot, padding int) bool {
	return a.Rect().Pad(padding).Intersects(b.Rect().Pad(padding))
}

func overlapsAny(p Plot, existing PlotSet, padding int) bool {
	for _, e := range existing {
		if Overlaps(p, e, padding) {
			return true
		}
	}
	return false
}

// Top returns at most n plots from the front of the set.
func (s PlotSet) Top(n int) PlotSet {
	if n < 0 || n >= len(s) {
		return s
	}
	return s[:n]
}
