package server

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Uptime string `json:"uptime"`
}

// handleHealth serves GET /api/ai/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	now := time.Now().UTC()
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Time:   now.Format(time.RFC3339),
		Uptime: now.Sub(s.startedAt).String(),
	})
}
