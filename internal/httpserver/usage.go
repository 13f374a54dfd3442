package httpserver

import (
	"net/http"
	"strconv"
)

// handleUsageScan, handleUsageTimeline, and handleUsageProjects expose the
// §4.O session-transcript usage cache over HTTP. The original surfaced these
// as direct in-process calls from its embedded UI rather than routes
// spec.md's §4.L table enumerates; since this hub has no embedded UI of its
// own, a front end reaches the same data this way instead.
func (s *Server) handleUsageScan(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "all"
	}
	stats, err := s.deps.UsageScan(scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUsageTimeline(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "all"
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	writeJSON(w, http.StatusOK, s.deps.UsageTimeline(scope, days))
}

func (s *Server) handleUsageProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.deps.UsageProjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleUsageAPI(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.UsageAPI(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
