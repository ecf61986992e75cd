package web

import (
	"net/http"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// handleHealth reports store reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	}
	if err := s.service.Ping(r.Context()); err != nil {
		msg := core.MapError(err)
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		body["code"] = msg.Code
		body["error"] = msg.Message
	}
	writeJSON(w, status, body)
}

// handleListKinds returns every record kind with its accepted field formats.
func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Kinds())
}
