package mcpserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sstraus/tuicommander/internal/agentdiscovery"
	"github.com/sstraus/tuicommander/internal/hubcore"
)

// toolSchemas describes the five meta-tools exposed over MCP. Each groups a
// family of REST-equivalent actions behind a single tool name, matching the
// original_source mcp_http module's action-dispatch shape.
func toolSchemas() []map[string]any {
	return []map[string]any{
		{
			"name":        "session",
			"description": "List and control existing PTY sessions (shells and coding agents); this tool does not spawn sessions.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action":  map[string]any{"type": "string", "enum": []string{"list", "input", "output", "resize", "close", "pause", "resume"}},
					"id":      map[string]any{"type": "string"},
					"data":    map[string]any{"type": "string"},
					"rows":    map[string]any{"type": "integer"},
					"cols":    map[string]any{"type": "integer"},
					"limit":   map[string]any{"type": "integer"},
				},
				"required": []string{"action"},
			},
		},
		{
			"name":        "git",
			"description": "Inspect a repository's status, diff, and GitHub pull requests.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{"type": "string", "enum": []string{"info", "diff", "files", "github", "prs", "branches"}},
					"path":   map[string]any{"type": "string"},
					"base":   map[string]any{"type": "string"},
				},
				"required": []string{"action", "path"},
			},
		},
		{
			"name":        "agent",
			"description": "Query hub-wide stats/metrics and detect installed coding-agent binaries.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{"type": "string", "enum": []string{"stats", "metrics", "detect", "spawn"}},
					"name":   map[string]any{"type": "string"},
				},
				"required": []string{"action"},
			},
		},
		{
			"name":        "config",
			"description": "Read or save the hub's application configuration.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{"type": "string", "enum": []string{"get", "save"}},
					"patch":  map[string]any{"type": "object"},
				},
				"required": []string{"action"},
			},
		},
		{
			"name":        "plugin_dev_guide",
			"description": "Return the reference documentation for writing a tuicommander plugin.",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (h *Handler) callTool(name string, args map[string]any) (any, bool) {
	switch name {
	case "session":
		return h.callSessionTool(args)
	case "git":
		return h.callGitTool(args)
	case "agent":
		return h.callAgentTool(args)
	case "config":
		return h.callConfigTool(args)
	case "plugin_dev_guide":
		return hubcore.PluginDevGuide, false
	default:
		return fmt.Sprintf("unknown tool: %s", name), true
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func errResult(err error) (any, bool) {
	return map[string]any{"error": err.Error()}, true
}

func (h *Handler) callSessionTool(args map[string]any) (any, bool) {
	action := argString(args, "action")

	if action == "list" {
		return h.deps.ListSessions(), false
	}

	id, err := uuid.Parse(argString(args, "id"))
	if err != nil {
		return errResult(fmt.Errorf("invalid or missing id: %w", err))
	}

	switch action {
	case "input":
		if err := h.deps.Write(id, []byte(argString(args, "data"))); err != nil {
			return errResult(err)
		}
		return map[string]any{"ok": true}, false
	case "output":
		limit := argInt(args, "limit")
		data, total, err := h.deps.Output(id, limit)
		if err != nil {
			return errResult(err)
		}
		return map[string]any{"data": string(data), "bytesTotal": total}, false
	case "resize":
		if err := h.deps.Resize(id, argInt(args, "rows"), argInt(args, "cols")); err != nil {
			return errResult(err)
		}
		return map[string]any{"ok": true}, false
	case "close":
		if err := h.deps.Close(id); err != nil {
			return errResult(err)
		}
		return map[string]any{"ok": true}, false
	case "pause":
		if err := h.deps.Pause(id); err != nil {
			return errResult(err)
		}
		return map[string]any{"ok": true}, false
	case "resume":
		if err := h.deps.Resume(id); err != nil {
			return errResult(err)
		}
		return map[string]any{"ok": true}, false
	default:
		return fmt.Sprintf("unknown session action: %s", action), true
	}
}

func (h *Handler) callGitTool(args map[string]any) (any, bool) {
	action := argString(args, "action")
	path := argString(args, "path")
	if path == "" {
		return errResult(fmt.Errorf("path is required"))
	}

	switch action {
	case "info":
		info, err := h.deps.RepoInfo(path)
		if err != nil {
			return errResult(err)
		}
		return info, false
	case "diff":
		diff, err := h.deps.RepoDiff(path, argString(args, "base"), "")
		if err != nil {
			return errResult(err)
		}
		return map[string]any{"diff": diff}, false
	case "files":
		entries, err := h.deps.RepoFiles(path)
		if err != nil {
			return errResult(err)
		}
		return entries, false
	case "github", "prs":
		prs, err := h.deps.RepoPRs(context.Background(), path)
		if err != nil {
			return errResult(err)
		}
		return prs, false
	case "branches":
		branches, err := h.deps.RepoBranches(path)
		if err != nil {
			return errResult(err)
		}
		return branches, false
	default:
		return fmt.Sprintf("unknown git action: %s", action), true
	}
}

func (h *Handler) callAgentTool(args map[string]any) (any, bool) {
	switch argString(args, "action") {
	case "stats", "metrics":
		return h.deps.Stats(), false
	case "detect":
		name := argString(args, "name")
		if name != "" {
			return agentdiscovery.DetectAgentBinary(name), false
		}
		detections := make(map[string]agentdiscovery.Detection, len(hubcore.KnownAgentNames))
		for _, n := range hubcore.KnownAgentNames {
			detections[n] = agentdiscovery.DetectAgentBinary(n)
		}
		return detections, false
	case "spawn":
		return "agent spawn via MCP is not implemented; use the session tool with action=list after spawning via the REST API", true
	default:
		return fmt.Sprintf("unknown agent action: %s", argString(args, "action")), true
	}
}

func (h *Handler) callConfigTool(args map[string]any) (any, bool) {
	switch argString(args, "action") {
	case "get":
		cfg, err := h.deps.ConfigGet()
		if err != nil {
			return errResult(err)
		}
		return cfg, false
	case "save":
		patch, _ := args["patch"].(map[string]any)
		cfg, err := h.deps.ConfigSave(patch)
		if err != nil {
			return errResult(err)
		}
		return cfg, false
	default:
		return fmt.Sprintf("unknown config action: %s", argString(args, "action")), true
	}
}
