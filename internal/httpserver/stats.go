package httpserver

import "net/http"

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Stats())
}

// handleMetrics exposes the same atomic counters as /stats under a separate
// route, matching spec.md §4.L's "Metrics: GET /stats, GET /metrics" pairing
// (the hub keeps one counter set; it doesn't carry a second Prometheus-style
// registry).
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Stats())
}
