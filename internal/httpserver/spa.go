package httpserver

import (
	"net/http"
	"os"
	"path/filepath"
)

// handleSPA serves the bundled front-end from StaticDir when one is
// configured, falling back to index.html for client-side routes. The SPA
// bundle itself is an external collaborator (spec.md §1's "front-end SPA"
// is explicitly out of scope) — this only reserves the catch-all route an
// embedding app can point at a built asset directory.
func (s *Server) handleSPA(w http.ResponseWriter, r *http.Request) {
	if s.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	requested := filepath.Join(s.StaticDir, filepath.Clean(r.URL.Path))
	if info, err := os.Stat(requested); err == nil && !info.IsDir() {
		http.ServeFile(w, r, requested)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.StaticDir, "index.html"))
}
