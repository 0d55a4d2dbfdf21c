package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pacerhq/pacer/scheduler"
)

// handleRunPass handles POST /scheduler/run: execute one orchestration pass
// and return its summary. Individual job failures are part of the summary,
// not an HTTP error; only a pass that could not run at all is a 500.
func (s *Server) handleRunPass(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	summary, err := s.orchestrator.RunPass(r.Context())
	if err != nil {
		writeWrappedError(w, s.logger, err, "pass failed to run", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handlePasses handles GET /api/passes?limit=
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := s.orchestrator.Passes().ListRecent(r.Context(), limit)
	if err != nil {
		writeWrappedError(w, s.logger, err, "failed to list passes", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*scheduler.PassRecord{}
	}

	writeJSON(w, http.StatusOK, ListPassesResponse{Passes: records, Count: len(records)})
}

// handlePass handles GET /api/passes/{id}
func (s *Server) handlePass(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/passes/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "Missing pass ID")
		return
	}

	record, err := s.orchestrator.Passes().Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, s.logger, err, "failed to get pass")
		return
	}

	writeJSON(w, http.StatusOK, record)
}
