package server

import (
	"net/http"
	"time"
)

// routes wires the HTTP surface
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Operational surface
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/scheduler/run", s.handleRunPass)

	// Schedule management
	mux.HandleFunc("/api/schedules", s.handleSchedules)
	mux.HandleFunc("/api/schedules/", s.handleSchedule)

	// Pass history
	mux.HandleFunc("/api/passes", s.handlePasses)
	mux.HandleFunc("/api/passes/", s.handlePass)

	// Live pass events
	mux.HandleFunc("/ws/passes", s.handlePassEvents)

	return mux
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
