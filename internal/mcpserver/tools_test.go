package mcpserver

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sstraus/tuicommander/internal/agentdiscovery"
	"github.com/sstraus/tuicommander/internal/config"
	"github.com/sstraus/tuicommander/internal/gitfacade"
	"github.com/sstraus/tuicommander/internal/hubcore"
	"github.com/sstraus/tuicommander/internal/plugins"
	"github.com/sstraus/tuicommander/internal/ptyhub"
	"github.com/sstraus/tuicommander/internal/usage"
	"github.com/sstraus/tuicommander/internal/worktree"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) *Handler {
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
	return New(deps, logger)
}

func TestToolSchemasListsFiveMetaTools(t *testing.T) {
	schemas := toolSchemas()
	want := []string{"session", "git", "agent", "config", "plugin_dev_guide"}
	if len(schemas) != len(want) {
		t.Fatalf("got %d tool schemas, want %d", len(schemas), len(want))
	}
	for i, name := range want {
		if schemas[i]["name"] != name {
			t.Errorf("schemas[%d].name = %v, want %q", i, schemas[i]["name"], name)
		}
	}
}

func TestCallToolUnknownTool(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("nonsense", nil)
	if !isErr {
		t.Fatal("expected isErr = true for unknown tool")
	}
	if result != "unknown tool: nonsense" {
		t.Errorf("result = %v", result)
	}
}

func TestCallToolPluginDevGuide(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("plugin_dev_guide", nil)
	if isErr {
		t.Fatal("expected isErr = false")
	}
	if result != hubcore.PluginDevGuide {
		t.Error("plugin_dev_guide tool did not return hubcore.PluginDevGuide")
	}
}

func TestSessionToolListEmpty(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("session", map[string]any{"action": "list"})
	if isErr {
		t.Fatalf("unexpected error result: %v", result)
	}
	sessions, ok := result.([]hubcore.SessionSummary)
	if !ok {
		t.Fatalf("result type = %T, want []hubcore.SessionSummary", result)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %+v, want empty", sessions)
	}
}

func TestSessionToolSpawnAndControlLifecycle(t *testing.T) {
	h := newTestHandler(t)

	summary, err := h.deps.SpawnShell(hubcore.SpawnShellRequest{Command: "sh", Rows: 24, Cols: 80})
	if err != nil {
		t.Fatalf("SpawnShell: %v", err)
	}

	result, isErr := h.callTool("session", map[string]any{"action": "input", "id": summary.ID, "data": "echo hi\n"})
	if isErr {
		t.Fatalf("input action errored: %v", result)
	}

	result, isErr = h.callTool("session", map[string]any{"action": "resize", "id": summary.ID, "rows": float64(40), "cols": float64(120)})
	if isErr {
		t.Fatalf("resize action errored: %v", result)
	}

	result, isErr = h.callTool("session", map[string]any{"action": "close", "id": summary.ID})
	if isErr {
		t.Fatalf("close action errored: %v", result)
	}
}

func TestSessionToolInvalidIDErrors(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("session", map[string]any{"action": "input", "id": "not-a-uuid", "data": "x"})
	if !isErr {
		t.Fatal("expected isErr = true for invalid id")
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T, want map[string]any", result)
	}
	if _, ok := m["error"]; !ok {
		t.Errorf("result %+v missing error field", m)
	}
}

func TestGitToolRequiresPath(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("git", map[string]any{"action": "info"})
	if !isErr {
		t.Fatal("expected isErr = true without path")
	}
	m := result.(map[string]any)
	if m["error"] != "path is required" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestGitToolUnknownAction(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("git", map[string]any{"action": "bogus", "path": "/tmp"})
	if !isErr {
		t.Fatal("expected isErr = true for unknown git action")
	}
	if result != "unknown git action: bogus" {
		t.Errorf("result = %v", result)
	}
}

func TestAgentToolStats(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("agent", map[string]any{"action": "stats"})
	if isErr {
		t.Fatalf("unexpected error: %v", result)
	}
	stats, ok := result.(hubcore.StatsResponse)
	if !ok {
		t.Fatalf("result type = %T, want hubcore.StatsResponse", result)
	}
	if stats.MaxSessions != ptyhub.MaxConcurrentSessions {
		t.Errorf("MaxSessions = %d, want %d", stats.MaxSessions, ptyhub.MaxConcurrentSessions)
	}
}

func TestAgentToolDetectAll(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("agent", map[string]any{"action": "detect"})
	if isErr {
		t.Fatalf("unexpected error: %v", result)
	}
	detections, ok := result.(map[string]agentdiscovery.Detection)
	if !ok {
		t.Fatalf("result type = %T, want map[string]agentdiscovery.Detection", result)
	}
	if len(detections) != len(hubcore.KnownAgentNames) {
		t.Errorf("got %d detections, want %d", len(detections), len(hubcore.KnownAgentNames))
	}
}

func TestAgentToolDetectSingle(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("agent", map[string]any{"action": "detect", "name": "claude"})
	if isErr {
		t.Fatalf("unexpected error: %v", result)
	}
	if _, ok := result.(agentdiscovery.Detection); !ok {
		t.Fatalf("result type = %T, want agentdiscovery.Detection", result)
	}
}

func TestAgentToolSpawnNotImplemented(t *testing.T) {
	h := newTestHandler(t)
	_, isErr := h.callTool("agent", map[string]any{"action": "spawn"})
	if !isErr {
		t.Fatal("expected isErr = true for unimplemented spawn action")
	}
}

func TestConfigToolGetScrubsPasswordHash(t *testing.T) {
	h := newTestHandler(t)

	cfg, err := h.deps.Config.App()
	if err != nil {
		t.Fatalf("load app config: %v", err)
	}
	cfg.RemoteAccessPasswordHash = "$2a$somehash"
	if err := h.deps.Config.SaveApp(cfg); err != nil {
		t.Fatalf("save app config: %v", err)
	}

	result, isErr := h.callTool("config", map[string]any{"action": "get"})
	if isErr {
		t.Fatalf("unexpected error: %v", result)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T, want map[string]any", result)
	}
	if _, leaked := m["remote_access_password_hash"]; leaked {
		t.Errorf("config.get leaked remote_access_password_hash: %+v", m)
	}
}

func TestConfigToolSave(t *testing.T) {
	h := newTestHandler(t)
	result, isErr := h.callTool("config", map[string]any{
		"action": "save",
		"patch":  map[string]any{"max_sessions": float64(9)},
	})
	if isErr {
		t.Fatalf("unexpected error: %v", result)
	}
	m := result.(map[string]any)
	if m["max_sessions"].(float64) != 9 {
		t.Errorf("max_sessions = %v, want 9", m["max_sessions"])
	}
}
