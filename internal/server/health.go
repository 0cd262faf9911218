package server

import "net/http"

// handleHealth reports the active configuration without touching the backend.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"backend":           s.backend.BaseURL(),
		"strip_timestamps":  s.cfg.StripTimestamps,
		"strip_message_ids": s.cfg.StripMessageIDs,
	})
}
