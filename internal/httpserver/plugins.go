package httpserver

import (
	"io"
	"net/http"

	"github.com/sstraus/tuicommander/internal/hubcore"
)

func (s *Server) handlePluginDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(hubcore.PluginDevGuide))
}

func (s *Server) handlePluginDataGet(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Plugins.Read(r.PathValue("id"), r.PathValue("path"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Write(data)
}

func (s *Server) handlePluginDataPut(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.deps.Plugins.Write(r.PathValue("id"), r.PathValue("path"), data); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePluginDataDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Plugins.Delete(r.PathValue("id"), r.PathValue("path")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
