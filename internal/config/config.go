// Package config loads the settler YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/settler/internal/engine"
	"github.com/talgya/settler/internal/roads"
	"github.com/talgya/settler/internal/site"
	"github.com/talgya/settler/internal/world"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Terrain    world.GenConfig `yaml:"terrain"`
	Settlement Settlement      `yaml:"settlement"`
	Buildings  Buildings       `yaml:"buildings"`
	Roads      Roads           `yaml:"roads"`
	Output     Output          `yaml:"output"`
}

type Settlement struct {
	Window            int     `yaml:"window"`
	Stride            int     `yaml:"stride"`
	MaxWaterFraction  float64 `yaml:"max_water_fraction"`
	WaterSampleStride int     `yaml:"water_sample_stride"` // Rows between water samples
}

type Buildings struct {
	Window  int `yaml:"window"`
	Stride  int `yaml:"stride"`
	Padding int `yaml:"padding"`
	Count   int `yaml:"count"`
}

type Roads struct {
	Inset     int             `yaml:"inset"`
	Materials roads.Materials `yaml:"materials"`
}

type Output struct {
	DBPath         string `yaml:"db_path"`
	PlacementsPath string `yaml:"placements_path"`
}

// Default returns the stock configuration.
func Default() Config {
	p := engine.DefaultParams()
	return Config{
		Terrain: world.DefaultGenConfig(),
		Settlement: Settlement{
			Window:            p.Settlement.Window,
			Stride:            p.Settlement.Stride,
			MaxWaterFraction:  p.Settlement.MaxWaterFraction,
			WaterSampleStride: int(p.Settlement.WaterScale),
		},
		Buildings: Buildings{
			Window:  p.Building.Window,
			Stride:  p.Building.Stride,
			Padding: p.Padding,
			Count:   p.MaxBuildings,
		},
		Roads: Roads{
			Inset:     p.Inset,
			Materials: p.Materials,
		},
		Output: Output{
			DBPath:         "data/settler.db",
			PlacementsPath: "data/placements.jsonl.zst",
		},
	}
}

// Load reads path over Default and validates the result. Keys missing from
// the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Terrain.Width > 0 && c.Terrain.Depth > 0, "terrain size %dx%d must be positive", c.Terrain.Width, c.Terrain.Depth)
	check(c.Settlement.Window > 0, "settlement.window must be positive")
	check(c.Settlement.Window <= c.Terrain.Width && c.Settlement.Window <= c.Terrain.Depth,
		"settlement.window %d does not fit terrain %dx%d", c.Settlement.Window, c.Terrain.Width, c.Terrain.Depth)
	check(c.Settlement.Stride > 0, "settlement.stride must be positive")
	check(c.Settlement.MaxWaterFraction > 0 && c.Settlement.MaxWaterFraction <= 1,
		"settlement.max_water_fraction %v must be in (0,1]", c.Settlement.MaxWaterFraction)
	check(c.Settlement.WaterSampleStride > 0, "settlement.water_sample_stride must be positive")
	check(c.Buildings.Window > 0 && c.Buildings.Window <= c.Settlement.Window,
		"buildings.window %d must be in 1..%d", c.Buildings.Window, c.Settlement.Window)
	check(c.Buildings.Stride > 0, "buildings.stride must be positive")
	check(c.Buildings.Padding >= 0, "buildings.padding must not be negative")
	check(c.Buildings.Count > 0, "buildings.count must be positive")
	check(c.Roads.Inset >= 0, "roads.inset must not be negative")
	check(c.Roads.Materials.Highway != "" && c.Roads.Materials.Spur != "", "roads.materials must name both blocks")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Params converts the scan and road sections into engine parameters.
func (c Config) Params() engine.Params {
	return engine.Params{
		Settlement: site.ScanParams{
			Window:           c.Settlement.Window,
			Stride:           c.Settlement.Stride,
			MaxWaterFraction: c.Settlement.MaxWaterFraction,
			WaterScale:       float64(c.Settlement.WaterSampleStride),
		},
		Building: site.ScanParams{
			Window: c.Buildings.Window,
			Stride: c.Buildings.Stride,
		},
		Padding:      c.Buildings.Padding,
		MaxBuildings: c.Buildings.Count,
		Inset:        c.Roads.Inset,
		Materials:    c.Roads.Materials,
	}
}
