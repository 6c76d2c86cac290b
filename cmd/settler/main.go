// Command settler generates terrain, picks a settlement site, lays out
// buildings and writes the connecting road network.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/talgya/settler/internal/api"
	"github.com/talgya/settler/internal/config"
	"github.com/talgya/settler/internal/engine"
	"github.com/talgya/settler/internal/persistence"
	"github.com/talgya/settler/internal/placement"
	"github.com/talgya/settler/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "YAML config file; built-in defaults when empty")
	dbPath := flag.String("db", "", "SQLite database (overrides output.db_path)")
	outPath := flag.String("out", "", "zstd JSONL placements file (overrides output.placements_path)")
	seed := flag.Int64("seed", 0, "terrain seed (overrides terrain.seed)")
	serve := flag.String("serve", "", "after settling, serve stored runs over HTTP on this address (e.g. :8080)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", *configPath)
	}
	if *dbPath != "" {
		cfg.Output.DBPath = *dbPath
	}
	if *outPath != "" {
		cfg.Output.PlacementsPath = *outPath
	}
	if *seed != 0 {
		cfg.Terrain.Seed = *seed
	}

	if err := run(cfg); err != nil {
		slog.Error("settle failed", "error", err)
		os.Exit(1)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if *serve != "" {
		db, err := persistence.Open(cfg.Output.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := api.NewServer(db, *serve).ListenAndServe(); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}
}

func run(cfg config.Config) error {
	// ── Terrain ───────────────────────────────────────────────────────
	slog.Info("generating terrain...")
	terrain, err := world.Generate(cfg.Terrain)
	if err != nil {
		return err
	}
	region := terrain.Region()
	slog.Info("terrain generated", "region", region.String(), "seed", terrain.Seed())

	water, err := world.MapWater(terrain, region, terrain.Heights(), cfg.Settlement.WaterSampleStride)
	if err != nil {
		return err
	}
	hf, err := world.NewHeightField(world.Column{X: region.X, Z: region.Z}, terrain.Heights(), water)
	if err != nil {
		return err
	}
	slog.Info("water mapped",
		"cells", humanize.Comma(int64(region.Width*region.Depth)),
		"water", humanize.Comma(int64(hf.WaterCount())),
		"row_stride", cfg.Settlement.WaterSampleStride,
	)

	// ── Settlement, Buildings, Roads ──────────────────────────────────
	res, err := engine.Settle(hf, cfg.Params())
	if err != nil {
		return err
	}
	slog.Info("roads planned",
		"buildings", len(res.Buildings),
		"highway", len(res.Plan.Highway),
		"spurs", len(res.Plan.Spurs),
		"skipped", len(res.Plan.Skipped),
	)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Output.DBPath), 0o755); err != nil {
		return err
	}
	db, err := persistence.Open(cfg.Output.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := db.SaveRun(res, persistence.RunMeta{Seed: terrain.Seed()})
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	// ── Placements ────────────────────────────────────────────────────
	out, err := placement.CreateJSONL(cfg.Output.PlacementsPath)
	if err != nil {
		return err
	}
	rows, err := db.Placements(runID)
	if err != nil {
		out.Close()
		return err
	}

	n, err := res.Emit(placement.Tee(out, rows))
	if err != nil {
		rows.Abort()
		out.Close()
		return fmt.Errorf("emit: %w", err)
	}
	if err := rows.Close(); err != nil {
		out.Close()
		return fmt.Errorf("commit placements: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", cfg.Output.PlacementsPath, err)
	}
	if err := db.SaveMeta("last_run", runID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("placements written",
		"run", runID,
		"count", humanize.Comma(int64(n)),
		"out", cfg.Output.PlacementsPath,
		"db", cfg.Output.DBPath,
	)
	return nil
}
