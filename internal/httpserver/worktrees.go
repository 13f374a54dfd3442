package httpserver

import (
	"net/http"

	"github.com/sstraus/tuicommander/internal/worktree"
)

type createWorktreeRequest struct {
	TaskName     string `json:"task_name"`
	BaseRepo     string `json:"base_repo"`
	Branch       string `json:"branch"`
	CreateBranch bool   `json:"create_branch"`
	BaseRef      string `json:"base_ref"`
	Strategy     string `json:"storage_strategy"`
}

func (s *Server) handleWorktreesList(w http.ResponseWriter, r *http.Request) {
	repo := repoPathParam(r)
	paths, err := s.deps.Worktrees.WorktreePaths(repo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, paths)
}

func (s *Server) handleWorktreeCreate(w http.ResponseWriter, r *http.Request) {
	var req createWorktreeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	strategy := worktree.StorageStrategy(req.Strategy)
	if strategy == "" {
		strategy = worktree.Sibling
	}
	dir := s.deps.Worktrees.ResolveWorktreeDir(req.BaseRepo, strategy)
	info, err := s.deps.Worktrees.CreateWorktree(dir, worktree.Config{
		TaskName:     req.TaskName,
		BaseRepo:     req.BaseRepo,
		Branch:       req.Branch,
		CreateBranch: req.CreateBranch,
	}, req.BaseRef)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleWorktreeDelete(w http.ResponseWriter, r *http.Request) {
	branch := r.PathValue("branch")
	repo := repoPathParam(r)
	deleteBranch := r.URL.Query().Get("delete_branch") == "true"
	if err := s.deps.Worktrees.RemoveWorktreeByBranch(repo, branch, deleteBranch); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWorktreeDir(w http.ResponseWriter, r *http.Request) {
	repo := repoPathParam(r)
	strategy := worktree.StorageStrategy(r.URL.Query().Get("strategy"))
	if strategy == "" {
		strategy = worktree.Sibling
	}
	dir := s.deps.Worktrees.ResolveWorktreeDir(repo, strategy)
	writeJSON(w, http.StatusOK, map[string]string{"dir": dir})
}

func (s *Server) handleWorktreeGenerateName(w http.ResponseWriter, r *http.Request) {
	repo := repoPathParam(r)
	existing, err := s.deps.Worktrees.ListLocalBranches(repo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": worktree.GenerateWorktreeName(existing)})
}
