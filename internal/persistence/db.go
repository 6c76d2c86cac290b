// Package persistence stores settling runs in SQLite: the chosen settlement,
// its buildings, and every road placement emitted for it.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/settler/internal/engine"
	"github.com/talgya/settler/internal/placement"
	"github.com/talgya/settler/internal/site"
	"github.com/talgya/settler/internal/world"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		settle_x INTEGER NOT NULL,
		settle_z INTEGER NOT NULL,
		settle_size INTEGER NOT NULL,
		roughness REAL NOT NULL,
		water_fraction REAL NOT NULL,
		candidates INTEGER NOT NULL,
		accepted INTEGER NOT NULL,
		highway_cells INTEGER NOT NULL,
		skipped_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buildings (
		run_id TEXT NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		x INTEGER NOT NULL,
		z INTEGER NOT NULL,
		width INTEGER NOT NULL,
		depth INTEGER NOT NULL,
		base INTEGER NOT NULL,
		top INTEGER NOT NULL,
		facing TEXT NOT NULL,
		door_x INTEGER NOT NULL,
		door_y INTEGER NOT NULL,
		door_z INTEGER NOT NULL,
		roughness REAL NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE TABLE IF NOT EXISTS placements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		z INTEGER NOT NULL,
		material TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_placements_run ON placements(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunMeta is caller-supplied context stored alongside a run.
type RunMeta struct {
	Seed int64
}

// Run is one stored settling run.
type Run struct {
	ID            string  `db:"id"`
	CreatedAt     string  `db:"created_at"`
	Seed          int64   `db:"seed"`
	SettleX       int     `db:"settle_x"`
	SettleZ       int     `db:"settle_z"`
	SettleSize    int     `db:"settle_size"`
	Roughness     float64 `db:"roughness"`
	WaterFraction float64 `db:"water_fraction"`
	Candidates    int     `db:"candidates"`
	Accepted      int     `db:"accepted"`
	HighwayCells  int     `db:"highway_cells"`
	SkippedJSON   string  `db:"skipped_json"`
}

// Settlement returns the run's settlement plot.
func (r Run) Settlement() site.Plot {
	return site.Plot{X: r.SettleX, Z: r.SettleZ, Size: r.SettleSize, Roughness: r.Roughness, WaterFraction: r.WaterFraction}
}

// SaveRun writes the run and its buildings in one transaction and returns the
// new run ID.
func (db *DB) SaveRun(res *engine.Result, meta RunMeta) (string, error) {
	id := uuid.NewString()
	slog.Info("saving run", "id", id, "buildings", len(res.Buildings))

	skipped, _ := json.Marshal(res.Plan.Skipped)
	if res.Plan.Skipped == nil {
		skipped = []byte("[]")
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, created_at, seed, settle_x, settle_z, settle_size, roughness, water_fraction,
		 candidates, accepted, highway_cells, skipped_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), meta.Seed,
		res.Settlement.X, res.Settlement.Z, res.Settlement.Size,
		res.Settlement.Roughness, res.Settlement.WaterFraction,
		res.Candidates, res.Accepted, len(res.Plan.Highway), string(skipped),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO buildings
		(run_id, idx, x, z, width, depth, base, top, facing, door_x, door_y, door_z, roughness)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, b := range res.Buildings {
		_, err := stmt.Exec(
			id, i, b.Footprint.X, b.Footprint.Z, b.Footprint.Width, b.Footprint.Depth,
			b.Base, b.Top, b.Facing.String(), b.Door.X, b.Door.Y, b.Door.Z, b.Roughness,
		)
		if err != nil {
			return "", fmt.Errorf("insert building %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// GetRun loads one run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", id)
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	return runs, err
}

// Skipped decodes the indices of buildings that got no spur.
func (r Run) Skipped() ([]int, error) {
	var out []int
	err := json.Unmarshal([]byte(r.SkippedJSON), &out)
	return out, err
}

type buildingRow struct {
	X         int     `db:"x"`
	Z         int     `db:"z"`
	Width     int     `db:"width"`
	Depth     int     `db:"depth"`
	Base      int     `db:"base"`
	Top       int     `db:"top"`
	Facing    string  `db:"facing"`
	DoorX     int     `db:"door_x"`
	DoorY     int     `db:"door_y"`
	DoorZ     int     `db:"door_z"`
	Roughness float64 `db:"roughness"`
}

// LoadBuildings returns a run's buildings in their planned order.
func (db *DB) LoadBuildings(runID string) ([]site.Building, error) {
	var rows []buildingRow
	err := db.conn.Select(&rows, `SELECT x, z, width, depth, base, top, facing, door_x, door_y, door_z, roughness
		FROM buildings WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}

	out := make([]site.Building, 0, len(rows))
	for _, r := range rows {
		facing, err := world.ParseFacing(r.Facing)
		if err != nil {
			return nil, fmt.Errorf("building facing: %w", err)
		}
		out = append(out, site.Building{
			Footprint: world.Rect{X: r.X, Z: r.Z, Width: r.Width, Depth: r.Depth},
			Base:      r.Base,
			Top:       r.Top,
			Facing:    facing,
			Door:      world.Vec3{X: r.DoorX, Y: r.DoorY, Z: r.DoorZ},
			Roughness: r.Roughness,
		})
	}
	return out, nil
}

// PlacementWriter is a placement.Sink that appends to one run inside a single
// transaction. Nothing is visible until Close commits.
type PlacementWriter struct {
	mu    sync.Mutex
	runID string
	tx    *sqlx.Tx
	stmt  *sqlx.Stmt
	n     int
}

// Placements opens a writer for runID.
func (db *DB) Placements(runID string) (*PlacementWriter, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return nil, err
	}
	stmt, err := tx.Preparex("INSERT INTO placements (run_id, x, y, z, material) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &PlacementWriter{runID: runID, tx: tx, stmt: stmt}, nil
}

// Place inserts one row.
func (w *PlacementWriter) Place(pos world.Vec3, material string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tx == nil {
		return fmt.Errorf("placement writer closed")
	}
	if _, err := w.stmt.Exec(w.runID, pos.X, pos.Y, pos.Z, material); err != nil {
		return fmt.Errorf("insert placement %s: %w", pos, err)
	}
	w.n++
	return nil
}

// Count returns the number of rows written so far.
func (w *PlacementWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close commits the transaction.
func (w *PlacementWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tx == nil {
		return nil
	}
	w.stmt.Close()
	err := w.tx.Commit()
	w.tx, w.stmt = nil, nil
	return err
}

// Abort discards everything written.
func (w *PlacementWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tx == nil {
		return nil
	}
	w.stmt.Close()
	err := w.tx.Rollback()
	w.tx, w.stmt = nil, nil
	return err
}

// LoadPlacements returns a run's placements in emission order.
func (db *DB) LoadPlacements(runID string) ([]placement.Placement, error) {
	var out []placement.Placement
	err := db.conn.Select(&out, "SELECT x, y, z, material FROM placements WHERE run_id = ? ORDER BY id", runID)
	return out, err
}

// SaveMeta stores a key-value metadata pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
