package httpserver

import "net/http"

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("POST /sessions", s.handleSpawnShell)
	mux.HandleFunc("POST /sessions/agent", s.handleSpawnAgent)
	mux.HandleFunc("POST /sessions/worktree", s.handleSpawnWorktree)
	mux.HandleFunc("POST /sessions/{id}/write", s.handleSessionWrite)
	mux.HandleFunc("POST /sessions/{id}/resize", s.handleSessionResize)
	mux.HandleFunc("POST /sessions/{id}/pause", s.handleSessionPause)
	mux.HandleFunc("POST /sessions/{id}/resume", s.handleSessionResume)
	mux.HandleFunc("GET /sessions/{id}/output", s.handleSessionOutput)
	mux.HandleFunc("GET /sessions/{id}/foreground", s.handleSessionForeground)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleSessionClose)
	mux.HandleFunc("GET /sessions/{id}/stream", s.handleSessionStream)

	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /usage/scan", s.handleUsageScan)
	mux.HandleFunc("GET /usage/timeline", s.handleUsageTimeline)
	mux.HandleFunc("GET /usage/projects", s.handleUsageProjects)
	mux.HandleFunc("GET /usage/api", s.handleUsageAPI)

	mux.HandleFunc("GET /repo/info", s.handleRepoInfo)
	mux.HandleFunc("GET /repo/diff", s.handleRepoDiff)
	mux.HandleFunc("GET /repo/diff-stats", s.handleRepoDiffStats)
	mux.HandleFunc("GET /repo/files", s.handleRepoFiles)
	mux.HandleFunc("GET /repo/github", s.handleRepoGithub)
	mux.HandleFunc("GET /repo/prs", s.handleRepoPRs)
	mux.HandleFunc("GET /repo/branches", s.handleRepoBranches)
	mux.HandleFunc("GET /repo/ci", s.handleRepoCI)
	mux.HandleFunc("GET /repo/file", s.handleRepoFile)
	mux.HandleFunc("GET /repo/file-diff", s.handleRepoFileDiff)
	mux.HandleFunc("GET /repo/markdown-files", s.handleRepoMarkdownFiles)
	mux.HandleFunc("GET /repo/initials", s.handleRepoInitials)
	mux.HandleFunc("GET /repo/is-main-branch", s.handleRepoIsMainBranch)
	mux.HandleFunc("POST /repo/branch/rename", s.handleRepoBranchRename)

	mux.HandleFunc("GET /worktrees", s.handleWorktreesList)
	mux.HandleFunc("POST /worktrees", s.handleWorktreeCreate)
	mux.HandleFunc("DELETE /worktrees/{branch}", s.handleWorktreeDelete)
	mux.HandleFunc("GET /worktrees/dir", s.handleWorktreeDir)
	mux.HandleFunc("GET /worktrees/paths", s.handleWorktreesList)
	mux.HandleFunc("POST /worktrees/generate-name", s.handleWorktreeGenerateName)

	s.registerConfigRoutes(mux)

	mux.HandleFunc("GET /agents", s.handleAgentsList)
	mux.HandleFunc("GET /agents/detect", s.handleAgentDetect)
	mux.HandleFunc("GET /agents/ides", s.handleAgentIDEs)

	mux.HandleFunc("GET /sse", s.mcp.ServeSSE)
	mux.HandleFunc("POST /messages", s.mcp.ServeMessages)

	mux.HandleFunc("GET /plugins/docs", s.handlePluginDocs)
	mux.HandleFunc("GET /api/plugins/{id}/data/{path...}", s.handlePluginDataGet)
	mux.HandleFunc("PUT /api/plugins/{id}/data/{path...}", s.handlePluginDataPut)
	mux.HandleFunc("DELETE /api/plugins/{id}/data/{path...}", s.handlePluginDataDelete)

	mux.HandleFunc("GET /", s.handleSPA)
	mux.HandleFunc("GET /{path...}", s.handleSPA)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.deps.Version})
}
