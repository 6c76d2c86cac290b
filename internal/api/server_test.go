package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/settler/internal/engine"
	"github.com/talgya/settler/internal/persistence"
	"github.com/talgya/settler/internal/placement"
	"github.com/talgya/settler/internal/roads"
	"github.com/talgya/settler/internal/site"
	"github.com/talgya/settler/internal/world"
)

// storedRun saves a two-building run with its placements and returns the
// server and run ID.
func storedRun(t *testing.T) (*Server, string, int) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hf := world.Flat(world.Rect{Width: 20, Depth: 20}, 64)
	buildings := []site.Building{}
	for _, b := range []struct {
		plot   site.Plot
		facing world.Facing
	}{
		{site.Plot{X: 1, Z: 3, Size: 2}, world.North},
		{site.Plot{X: 16, Z: 15, Size: 2}, world.South},
	} {
		promoted, err := site.Promote(hf, b.plot, b.facing)
		if err != nil {
			t.Fatalf("Promote: %v", err)
		}
		buildings = append(buildings, promoted)
	}
	plan, err := roads.NewPlanner(hf).Plan(buildings)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	res := &engine.Result{Settlement: site.Plot{Size: 20}, Buildings: buildings, Plan: plan}

	id, err := db.SaveRun(res, persistence.RunMeta{Seed: 99})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	w, err := db.Placements(id)
	if err != nil {
		t.Fatalf("Placements: %v", err)
	}
	n, err := res.Emit(w)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db.SaveMeta("last_run", id); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	return NewServer(db, ":0"), id, n
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("GET %s: decode: %v", path, err)
		}
	}
	return rec.Code
}

func TestRunEndpoints(t *testing.T) {
	s, id, n := storedRun(t)
	h := s.Handler()

	var status map[string]string
	if code := get(t, h, "/api/v1/status", &status); code != http.StatusOK || status["last_run"] != id {
		t.Fatalf("status: code=%d body=%v", code, status)
	}

	var runs []runSummary
	if code := get(t, h, "/api/v1/runs", &runs); code != http.StatusOK || len(runs) != 1 || runs[0].ID != id {
		t.Fatalf("runs: code=%d runs=%+v", code, runs)
	}

	var run runSummary
	if code := get(t, h, "/api/v1/runs/"+id, &run); code != http.StatusOK || run.Seed != 99 {
		t.Fatalf("run: code=%d run=%+v", code, run)
	}

	var buildings []site.Building
	if code := get(t, h, "/api/v1/runs/"+id+"/buildings", &buildings); code != http.StatusOK || len(buildings) != 2 {
		t.Fatalf("buildings: code=%d n=%d", code, len(buildings))
	}
	if buildings[0].Facing != world.North || buildings[1].Facing != world.South {
		t.Fatalf("facings = %s, %s", buildings[0].Facing, buildings[1].Facing)
	}

	var placements []placement.Placement
	if code := get(t, h, "/api/v1/runs/"+id+"/placements", &placements); code != http.StatusOK || len(placements) != n {
		t.Fatalf("placements: code=%d got %d want %d", code, len(placements), n)
	}
}

func TestUnknownRun(t *testing.T) {
	s, _, _ := storedRun(t)
	h := s.Handler()
	for _, path := range []string{"/api/v1/runs/nope", "/api/v1/runs/nope/buildings", "/api/v1/runs/nope/placements"} {
		if code := get(t, h, path, nil); code != http.StatusNotFound {
			t.Fatalf("GET %s = %d, want 404", path, code)
		}
	}
	if code := get(t, h, "/api/v1/runs?limit=-1", nil); code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d, want 400", code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("other clients keep their own budget")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("RetryAfter = %d, want 61", got)
	}

	clock = clock.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("budget should refill after the window")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d = %d, want %d", i, rec.Code, want)
		}
		if want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Fatalf("429 without Retry-After")
		}
	}
	if ip := clientIP(req); ip != "10.0.0.1" {
		t.Fatalf("clientIP = %q", ip)
	}
}
