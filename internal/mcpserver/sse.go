// Package mcpserver implements the MCP transport: JSON-RPC 2.0 requests
// delivered over Server-Sent Events, per spec.md §4.L. Tool handlers are
// thin façades over internal/hubcore so behavior matches the REST API
// exactly.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/sstraus/tuicommander/internal/hubcore"
)

// Handler serves the MCP SSE stream and JSON-RPC message endpoint.
type Handler struct {
	deps   *hubcore.Deps
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]chan string
}

// New returns an MCP handler bound to deps.
func New(deps *hubcore.Deps, logger *slog.Logger) *Handler {
	return &Handler{deps: deps, logger: logger, sessions: make(map[string]chan string)}
}

// ServeSSE opens an SSE stream, assigns a session id, and streams whatever
// ServeMessages pushes into that session's channel.
func (h *Handler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.New().String()
	ch := make(chan string, 32)
	h.mu.Lock()
	h.sessions[sessionID] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, sessionID)
		h.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: /messages?sessionId=%s\n\n", sessionID)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ServeMessages accepts one JSON-RPC request per POST and pushes the
// response onto the SSE session's channel named by ?sessionId=.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	h.mu.Lock()
	ch, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "unknown sessionId", http.StatusNotFound)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json-rpc request", http.StatusBadRequest)
		return
	}

	resp, noResponse := h.dispatch(req)
	if noResponse {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	body, _ := json.Marshal(resp)
	select {
	case ch <- string(body):
	default:
		h.logger.Warn("mcp sse session channel full, dropping response", "session", sessionID)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) dispatch(req rpcRequest) (rpcResponse, bool) {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "tui-commander", "version": h.deps.Version},
		}
		return resp, false
	case "notifications/initialized":
		return resp, true
	case "tools/list":
		resp.Result = map[string]any{"tools": toolSchemas()}
		return resp, false
	case "tools/call":
		return h.handleToolCall(req, resp)
	default:
		resp.Error = &rpcError{Code: -32601, Message: "Method not found: " + req.Method}
		return resp, false
	}
}

func (h *Handler) handleToolCall(req rpcRequest, resp rpcResponse) (rpcResponse, bool) {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp.Error = &rpcError{Code: -32602, Message: "invalid params"}
		return resp, false
	}

	result, isError := h.callTool(params.Name, params.Arguments)
	pretty, _ := json.MarshalIndent(result, "", "  ")
	resp.Result = map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(pretty)}},
		"isError": isError,
	}
	return resp, false
}
