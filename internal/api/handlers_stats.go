package api

import (
	"net/http"
)

func (s *Server) handleLatencyStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": s.svc.Store().Len(),
		"latency":   s.svc.Latency().Snapshot(),
	})
}
