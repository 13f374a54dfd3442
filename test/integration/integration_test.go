// Package integration exercises the hub across its public package
// boundaries: the HTTP server, the MCP handler, and the shared hubcore.Deps
// they both dispatch into, wired the way cmd/tuicommander's buildDeps does.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sstraus/tuicommander/internal/config"
	"github.com/sstraus/tuicommander/internal/gitfacade"
	"github.com/sstraus/tuicommander/internal/httpserver"
	"github.com/sstraus/tuicommander/internal/hubcore"
	"github.com/sstraus/tuicommander/internal/plugins"
	"github.com/sstraus/tuicommander/internal/ptyhub"
	"github.com/sstraus/tuicommander/internal/usage"
	"github.com/sstraus/tuicommander/internal/worktree"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	deps  *hubcore.Deps
	store *config.Store
	srv   *httpserver.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	logger := discardLogger()

	store := config.NewStore(dir, logger)
	sessions := ptyhub.NewStore()
	orch := ptyhub.NewOrchestrator(sessions, logger)
	engine := worktree.NewEngine(dir, logger)
	client := gitfacade.NewClient("")
	sandbox := plugins.New(dir)
	usageCache := usage.NewCache(dir, logger)

	deps := hubcore.NewDeps(orch, sessions, store, engine, client, sandbox, usageCache, logger, "test")
	srv := httpserver.New(deps, store, logger)
	return &harness{deps: deps, store: store, srv: srv}
}

// start runs the real Server.Start bind-and-serve loop (loopback, since
// remote access is off by default) and returns a func that cancels it and
// waits for Start to return.
func (h *harness) start(t *testing.T) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for h.srv.Addr == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("server did not bind within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start returned error on shutdown: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("server did not shut down within 2s")
		}
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(raw)
}

func TestServerLifecycleWritesAndRemovesPortFile(t *testing.T) {
	h := newHarness(t)
	stop := h.start(t)

	portFile := filepath.Join(h.store.Dir(), httpserver.MCPPortFile)
	data, err := os.ReadFile(portFile)
	if err != nil {
		t.Fatalf("read port file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("port file is empty")
	}

	resp, err := http.Get("http://" + h.srv.Addr + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	stop()

	if _, err := os.Stat(portFile); !os.IsNotExist(err) {
		t.Errorf("port file still exists after shutdown: err = %v", err)
	}
}

func TestSpawnedSessionVisibleViaBothDepsConsumers(t *testing.T) {
	h := newHarness(t)
	stop := h.start(t)
	defer stop()

	resp, err := http.Post("http://"+h.srv.Addr+"/sessions", "application/json",
		jsonBody(t, hubcore.SpawnShellRequest{Command: "sh", Rows: 24, Cols: 80}))
	if err != nil {
		t.Fatalf("POST /sessions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var spawned hubcore.SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&spawned); err != nil {
		t.Fatalf("decode spawn response: %v", err)
	}

	// h.deps is the same Deps the HTTP handlers and an MCP Handler would both
	// dispatch into (internal/mcpserver's tool dispatcher calls these same
	// methods) — listing through it directly proves REST and MCP can never
	// see divergent session state.
	list := h.deps.ListSessions()
	found := false
	for _, s := range list {
		if s.ID == spawned.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("session %s spawned over HTTP not visible via deps.ListSessions(): %+v", spawned.ID, list)
	}

	id, err := uuid.Parse(spawned.ID)
	if err != nil {
		t.Fatalf("parse session id: %v", err)
	}
	if err := h.deps.Close(id); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestConfigSaveGuardAppliesRegardlessOfCaller(t *testing.T) {
	h := newHarness(t)
	stop := h.start(t)
	defer stop()

	req, err := http.NewRequest(http.MethodPut, "http://"+h.srv.Addr+"/config", jsonBody(t, map[string]any{"max_sessions": 3}))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /config: %v", err)
	}
	defer resp.Body.Close()
	// The test client connects over 127.0.0.1, so the loopback guard passes
	// and the save succeeds; the guard's non-loopback branch is covered at
	// the handler level in internal/httpserver's own tests.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	cfg, err := h.store.App()
	if err != nil {
		t.Fatalf("load app config: %v", err)
	}
	if cfg.MaxSessions != 3 {
		t.Errorf("MaxSessions = %d, want 3", cfg.MaxSessions)
	}
}
