package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sstraus/tuicommander/internal/config"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// localOrigins is the CORS whitelist used when remote access is disabled
// (spec.md §4.L).
var localOrigins = map[string]bool{
	"http://localhost":      true,
	"http://127.0.0.1":      true,
	"tauri://localhost":     true,
	"https://tauri.localhost": true,
}

// corsMiddleware applies the remote/local CORS policy and answers preflight
// requests directly.
func corsMiddleware(remote bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if remote {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if originAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string) bool {
	if localOrigins[origin] {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

// basicAuthOutcome enumerates the Authorization check results from spec.md
// §4.L.
type basicAuthOutcome int

const (
	authOK basicAuthOutcome = iota
	authMissingHeader
	authInvalid
	authNotConfigured
)

func checkBasicAuth(r *http.Request, cfg config.AppConfig) basicAuthOutcome {
	if cfg.RemoteAccessUsername == "" || cfg.RemoteAccessPasswordHash == "" {
		return authNotConfigured
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return authMissingHeader
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(cfg.RemoteAccessUsername)) != 1 {
		return authInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(cfg.RemoteAccessPasswordHash), []byte(pass)) != nil {
		return authInvalid
	}
	return authOK
}

// authMiddleware enforces Basic Auth on every request when remote access is
// enabled. Disabled (loopback-only) servers never wrap handlers with this.
func authMiddleware(store *config.Store, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg, err := store.App()
		if err != nil {
			logger.Error("load app config for auth", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch checkBasicAuth(r, cfg) {
		case authOK:
			next.ServeHTTP(w, r)
		case authMissingHeader:
			w.Header().Set("WWW-Authenticate", `Basic realm="tuicommander"`)
			w.WriteHeader(http.StatusUnauthorized)
		case authInvalid:
			w.WriteHeader(http.StatusUnauthorized)
		case authNotConfigured:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
}

// isLoopback reports whether r arrived over a loopback connection, used by
// the config-save guard (spec.md §4.L: "PUT /config rejects non-loopback
// connections with 403 regardless of auth").
func isLoopback(r *http.Request) bool {
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	host = strings.Trim(host, "[]")
	return host == "127.0.0.1" || host == "::1" || host == "localhost"
}
