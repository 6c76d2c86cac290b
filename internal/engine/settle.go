// Package engine runs the settling pipeline: pick a settlement site, lay out
// building plots inside it, then connect their doors with roads.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/settler/internal/placement"
	"github.com/talgya/settler/internal/roads"
	"github.com/talgya/settler/internal/site"
	"github.com/talgya/settler/internal/world"
)

// Params configures one Settle run.
type Params struct {
	Settlement   site.ScanParams
	Building     site.ScanParams
	Padding      int // Gap kept between accepted building plots
	MaxBuildings int
	Inset        int
	Materials    roads.Materials
}

// DefaultParams returns the stock settlement and building scans: a 50-block
// settlement under 0.3% water (mask sampled every third row), 5-block plots,
// twelve buildings.
func DefaultParams() Params {
	return Params{
		Settlement: site.ScanParams{
			Window:           50,
			Stride:           1,
			MaxWaterFraction: 0.003,
			WaterScale:       3,
		},
		Building: site.ScanParams{
			Window: 5,
			Stride: 1,
		},
		Padding:      3,
		MaxBuildings: 12,
		Inset:        roads.DefaultInset,
		Materials:    roads.DefaultMaterials(),
	}
}

// Result is everything a Settle run decided.
type Result struct {
	Settlement site.Plot       `json:"settlement"`
	Candidates int             `json:"candidates"` // Dry plots found inside the settlement
	Accepted   int             `json:"accepted"`   // Plots left after overlap filtering
	Buildings  []site.Building `json:"buildings"`
	Plan       *roads.Plan     `json:"plan"`
}

// Settle runs the full pipeline over hf.
func Settle(hf *world.HeightField, p Params) (*Result, error) {
	best, err := site.ScanBest(hf, p.Settlement)
	if err != nil {
		return nil, fmt.Errorf("settlement: %w", err)
	}
	slog.Info("settlement chosen", "plot", best.String())

	area, err := hf.Sub(best.X, best.Z, best.Size, best.Size)
	if err != nil {
		return nil, fmt.Errorf("settlement area: %w", err)
	}

	plots, err := site.ScanAll(area, p.Building)
	if err != nil {
		return nil, fmt.Errorf("building plots: %w", err)
	}
	plots.SortByRoughness()
	accepted := plots.FilterOverlapping(p.Padding)
	chosen := accepted.Top(p.MaxBuildings)
	slog.Info("building plots", "candidates", len(plots), "accepted", len(accepted), "chosen", len(chosen))

	centre := best.Rect().Center()
	buildings := make([]site.Building, 0, len(chosen))
	for _, plot := range chosen {
		b, err := site.Promote(hf, plot, site.FacingToward(plot.Rect(), centre))
		if err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}

	// Roads run over the whole field: doors sit just outside their plots and
	// may fall outside the settlement window.
	planner := &roads.Planner{Field: hf, Inset: p.Inset, Materials: p.Materials}
	plan, err := planner.Plan(buildings)
	if err != nil {
		return nil, err
	}

	return &Result{
		Settlement: best,
		Candidates: len(plots),
		Accepted:   len(accepted),
		Buildings:  buildings,
		Plan:       plan,
	}, nil
}

// Emit hands the road cells to sink.
func (r *Result) Emit(sink placement.Sink) (int, error) {
	return r.Plan.Emit(sink)
}
