package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/sstraus/tuicommander/internal/config"
)

// registerConfigRoutes wires the main app config (GET/PUT /config, with
// scrubbing and the loopback-only save guard) plus a GET/PUT pair for every
// sibling schema file (spec.md §4.L: "a sibling pair for every other config
// file").
func (s *Server) registerConfigRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /config", s.handleConfigGet)
	mux.HandleFunc("PUT /config", s.handleConfigPut)
	mux.HandleFunc("POST /config/hash-password", s.handleConfigHashPassword)

	registerSchemaRoute(mux, s.store, "notifications", config.NotificationsFile, config.DefaultNotificationsConfig())
	registerSchemaRoute(mux, s.store, "ui-prefs", config.UIPrefsFile, config.DefaultUIPrefsConfig())
	registerSchemaRoute(mux, s.store, "repo-settings", config.RepoSettingsFile, config.DefaultRepoSettingsConfig())
	registerSchemaRoute(mux, s.store, "repo-defaults", config.RepoDefaultsFile, config.DefaultRepoDefaultsConfig())
	registerSchemaRoute(mux, s.store, "repositories", config.RepositoriesFile, config.DefaultRepositoriesConfig())
	registerSchemaRoute(mux, s.store, "notes", config.NotesFile, config.DefaultNotesConfig())
	registerSchemaRoute(mux, s.store, "keybindings", config.KeybindingsFile, config.DefaultKeybindingsConfig())
	registerSchemaRoute(mux, s.store, "agents", config.AgentsFile, config.DefaultAgentsConfig())
	registerSchemaRoute(mux, s.store, "activity", config.ActivityFile, config.DefaultActivityConfig())
	registerSchemaRoute(mux, s.store, "prompt-library", config.PromptLibraryFile, config.DefaultPromptLibraryConfig())
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.ConfigGet()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleConfigPut rejects non-loopback saves regardless of Basic Auth
// outcome: passwords (and the remote-access toggle itself) are only
// settable from the machine the hub runs on.
func (s *Server) handleConfigPut(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r) {
		writeError(w, http.StatusForbidden, fmt.Errorf("config may only be changed from localhost"))
		return
	}
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := s.deps.ConfigSave(patch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleConfigHashPassword(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r) {
		writeError(w, http.StatusForbidden, fmt.Errorf("password may only be hashed from localhost"))
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hash": string(hash)})
}

// registerSchemaRoute wires a GET/PUT pair for one config schema file, keyed
// by name (the URL segment under /config/{name}).
func registerSchemaRoute[T any](mux *http.ServeMux, store *config.Store, name, file string, def T) {
	mux.HandleFunc("GET /config/"+name, func(w http.ResponseWriter, r *http.Request) {
		v, err := config.LoadSchema(store, file, def)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	})
	mux.HandleFunc("PUT /config/"+name, func(w http.ResponseWriter, r *http.Request) {
		var v T
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := config.SaveSchema(store, file, v); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	})
}
