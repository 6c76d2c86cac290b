// Package api serves stored settling runs over HTTP. All endpoints are
// read-only GETs.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/settler/internal/persistence"
)

const defaultRunLimit = 20

// Server answers queries against the run database.
type Server struct {
	DB   *persistence.DB
	Addr string

	// Placements can run to tens of thousands of rows per run.
	placementLimiter *RateLimiter
}

// NewServer returns a server for db listening on addr.
func NewServer(db *persistence.DB, addr string) *Server {
	return &Server{
		DB:               db,
		Addr:             addr,
		placementLimiter: NewRateLimiter(60, time.Minute),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/status", s.handleStatus)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
		r.Get("/runs/{id}/buildings", s.handleBuildings)
		r.With(s.placementLimiter.Middleware).Get("/runs/{id}/placements", s.handlePlacements)
	})
	return r
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe() error {
	slog.Info("HTTP API starting", "addr", s.Addr)
	return http.ListenAndServe(s.Addr, s.Handler())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last, err := s.DB.GetMeta("last_run")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"last_run": last})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, summarize(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(run))
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	buildings, err := s.DB.LoadBuildings(run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, buildings)
}

func (s *Server) handlePlacements(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	placements, err := s.DB.LoadPlacements(run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, placements)
}

// lookup resolves {id}, answering 404 itself when the run does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (persistence.Run, bool) {
	run, err := s.DB.GetRun(chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return run, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return run, false
	}
	return run, true
}

type runSummary struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Seed         int64  `json:"seed"`
	Settlement   any    `json:"settlement"`
	Candidates   int    `json:"candidates"`
	Accepted     int    `json:"accepted"`
	HighwayCells int    `json:"highway_cells"`
	Skipped      []int  `json:"skipped"`
}

func summarize(run persistence.Run) runSummary {
	skipped, err := run.Skipped()
	if err != nil {
		slog.Warn("bad skipped list", "run", run.ID, "error", err)
	}
	if skipped == nil {
		skipped = []int{}
	}
	return runSummary{
		ID:           run.ID,
		CreatedAt:    run.CreatedAt,
		Seed:         run.Seed,
		Settlement:   run.Settlement(),
		Candidates:   run.Candidates,
		Accepted:     run.Accepted,
		HighwayCells: run.HighwayCells,
		Skipped:      skipped,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	slog.Error("api request failed", "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
