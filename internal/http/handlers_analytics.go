package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"casa/internal/log"
)

// handleAnalytics serves the dashboard figures for ?year=, the current real
// year by default. Past years are computed from their snapshots.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query().Get("year"), s.now().Year())
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return
	}
	a, err := s.analytics(r.Context(), year)
	if err != nil {
		writeError(w, r, "Failed to fetch analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListHistorical(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(w, r, "Invalid year", err)
		return
	}
	hist, err := s.deps.Snapshots.ListHistorical(r.Context(), year)
	if err != nil {
		writeError(w, r, "Failed to fetch historical expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleDeleteHistorical(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, "Invalid historical expense id", err)
		return
	}
	if err := s.deps.Snapshots.DeleteHistorical(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete historical expense", err)
		return
	}
	s.invalidateAnalytics()
	w.WriteHeader(http.StatusNoContent)
}

// handleYearTransition snapshots the current fixed expenses for ?year=, the
// previous real year by default.
func (s *Server) handleYearTransition(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query().Get("year"), s.deps.Snapshots.DefaultTransitionYear())
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return
	}
	res, err := s.deps.Snapshots.SnapshotYear(r.Context(), year)
	if err != nil {
		writeError(w, r, "Failed to create year transition", err)
		return
	}
	s.invalidateAnalytics()

	log.FromContext(r.Context()).InfoContext(r.Context(), "Year transition requested",
		log.FieldYear, res.Year,
		log.FieldSnapshotted, len(res.Snapshotted))
	writeJSON(w, http.StatusOK, res)
}
