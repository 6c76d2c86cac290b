// Terrain generation using layered simplex noise.
// Stands in for a live world slice: it produces a heightmap and answers block queries.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	OriginX    int     `yaml:"origin_x"`
	OriginZ    int     `yaml:"origin_z"`
	Width      int     `yaml:"width"`       // X extent in blocks
	Depth      int     `yaml:"depth"`       // Z extent in blocks
	Seed       int64   `yaml:"seed"`        // Random seed (0 = random)
	BaseHeight int     `yaml:"base_height"` // Elevation of the noise midpoint
	Amplitude  float64 `yaml:"amplitude"`   // Peak deviation from BaseHeight in blocks
	SeaLevel   int     `yaml:"sea_level"`   // Columns at or below this fill with water
	Frequency  float64 `yaml:"frequency"`   // Base noise frequency per block
	Octaves    int     `yaml:"octaves"`
}

// DefaultGenConfig returns a build area comparable to a typical GDMC region.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:      256,
		Depth:      256,
		Seed:       0,
		BaseHeight: 68,
		Amplitude:  14,
		SeaLevel:   62,
		Frequency:  0.012,
		Octaves:    4,
	}
}

// SmallTestConfig returns a tiny region for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:      64,
		Depth:      64,
		Seed:       42,
		BaseHeight: 66,
		Amplitude:  6,
		SeaLevel:   61,
		Frequency:  0.03,
		Octaves:    3,
	}
}

// Terrain is a generated block column world.
type Terrain struct {
	region   Rect
	heights  [][]int // [x][z] first free block above ground
	ground   [][]int // [x][z] first free block above the solid ground (below water)
	seaLevel int
	seed     int64
}

// Generate creates a terrain from layered noise.
func Generate(cfg GenConfig) (*Terrain, error) {
	if cfg.Width <= 0 || cfg.Depth <= 0 {
		return nil, fmt.Errorf("generate: invalid size %dx%d", cfg.Width, cfg.Depth)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	octaves := cfg.Octaves
	if octaves <= 0 {
		octaves = 1
	}

	// Two noise generators: broad elevation and a detail layer.
	elevNoise := opensimplex.NewNormalized(seed)
	detailNoise := opensimplex.NewNormalized(seed + 1)

	t := &Terrain{
		region:   Rect{X: cfg.OriginX, Z: cfg.OriginZ, Width: cfg.Width, Depth: cfg.Depth},
		heights:  make([][]int, cfg.Width),
		ground:   make([][]int, cfg.Width),
		seaLevel: cfg.SeaLevel,
		seed:     seed,
	}

	for x := 0; x < cfg.Width; x++ {
		t.heights[x] = make([]int, cfg.Depth)
		t.ground[x] = make([]int, cfg.Depth)
		for z := 0; z < cfg.Depth; z++ {
			wx := float64(cfg.OriginX + x)
			wz := float64(cfg.OriginZ + z)

			elev := octaveNoise(elevNoise, wx, wz, octaves, cfg.Frequency, 0.5)
			detail := octaveNoise(detailNoise, wx, wz, 2, cfg.Frequency*4, 0.5)

			// Normalized noise is in [0,1]; recentre to [-1,1].
			v := (elev*0.85+detail*0.15)*2 - 1
			ground := cfg.BaseHeight + int(math.Round(v*cfg.Amplitude))

			t.ground[x][z] = ground
			t.heights[x][z] = ground
			if ground <= cfg.SeaLevel {
				t.heights[x][z] = cfg.SeaLevel + 1
			}
		}
	}

	return t, nil
}

// Seed returns the noise seed actually used, resolved when GenConfig.Seed is 0.
func (t *Terrain) Seed() int64 {
	return t.seed
}

// Region returns the generated rectangle.
func (t *Terrain) Region() Rect {
	return t.region
}

// Heights returns the [x][z] surface heightmap, the same heightmap a world
// slice reports for MOTION_BLOCKING.
func (t *Terrain) Heights() [][]int {
	return t.heights
}

// Block returns the block name at (x, y, z).
func (t *Terrain) Block(x, y, z int) (string, error) {
	if !t.region.Contains(Column{X: x, Z: z}) {
		return "", fmt.Errorf("%w: block (%d,%d,%d) outside %s", ErrOutOfBounds, x, y, z, t.region)
	}
	lx, lz := x-t.region.X, z-t.region.Z
	ground := t.ground[lx][lz]

	switch {
	case y <= 0:
		return "minecraft:bedrock", nil
	case y < ground-4:
		return "minecraft:stone", nil
	case y < ground-1:
		return "minecraft:dirt", nil
	case y == ground-1:
		if ground <= t.seaLevel {
			return "minecraft:sand", nil
		}
		return "minecraft:grass_block", nil
	case y <= t.seaLevel && ground <= t.seaLevel:
		return "minecraft:water", nil
	default:
		return "minecraft:air", nil
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
