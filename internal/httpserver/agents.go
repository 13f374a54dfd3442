package httpserver

import (
	"net/http"

	"github.com/sstraus/tuicommander/internal/agentdiscovery"
	"github.com/sstraus/tuicommander/internal/hubcore"
)

func (s *Server) handleAgentsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hubcore.KnownAgentNames)
}

func (s *Server) handleAgentDetect(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name != "" {
		writeJSON(w, http.StatusOK, agentdiscovery.DetectAgentBinary(name))
		return
	}
	detections := make(map[string]agentdiscovery.Detection, len(hubcore.KnownAgentNames))
	for _, n := range hubcore.KnownAgentNames {
		detections[n] = agentdiscovery.DetectAgentBinary(n)
	}
	writeJSON(w, http.StatusOK, detections)
}

func (s *Server) handleAgentIDEs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, agentdiscovery.DetectInstalledIDEs())
}
