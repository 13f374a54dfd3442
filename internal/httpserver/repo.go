package httpserver

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sstraus/tuicommander/internal/gitfacade"
)

func repoPathParam(r *http.Request) string {
	if p := r.URL.Query().Get("path"); p != "" {
		return p
	}
	return r.URL.Query().Get("repo")
}

func (s *Server) handleRepoInfo(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	info, err := s.deps.RepoInfo(path)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRepoDiff(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	base := r.URL.Query().Get("base")
	if base == "" {
		base = "HEAD"
	}
	diff, err := s.deps.RepoDiff(path, base, r.URL.Query().Get("file"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"diff": diff})
}

func (s *Server) handleRepoDiffStats(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	base := r.URL.Query().Get("base")
	if base == "" {
		base = "HEAD"
	}
	stats, err := s.deps.RepoDiffStats(path, base)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"stats": stats})
}

func (s *Server) handleRepoFiles(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	entries, err := s.deps.RepoFiles(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRepoGithub(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	branch, err := s.deps.RepoCurrentBranch(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	info, infoErr := s.deps.RepoInfo(path)
	hasRemote := infoErr == nil && strings.Contains(info.Name, "/")
	resp := map[string]any{"has_remote": hasRemote, "current_branch": branch, "ahead": 0, "behind": 0}
	if hasRemote {
		if ahead, behind, err := gitfacade.AheadBehind(path, branch); err == nil {
			resp["ahead"], resp["behind"] = ahead, behind
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRepoPRs(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	prs, err := s.deps.RepoPRs(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prs)
}

func (s *Server) handleRepoBranches(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	branches, err := s.deps.RepoBranches(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

// handleRepoCI returns the CI check contexts for a PR number, when the
// configured GitHub client can reach the API; an unreachable or
// unauthenticated client yields an empty list rather than an error, matching
// the original's "no token → no checks" behavior.
func (s *Server) handleRepoCI(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	prNumber, _ := strconv.Atoi(r.URL.Query().Get("pr_number"))
	if prNumber == 0 || s.deps.GitHub == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	info, err := s.deps.RepoInfo(path)
	if err != nil || !strings.Contains(info.Name, "/") {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	owner, repo, _ := strings.Cut(info.Name, "/")
	query := `query($owner:String!,$repo:String!,$number:Int!){repository(owner:$owner,name:$repo){pullRequest(number:$number){commits(last:1){nodes{commit{statusCheckRollup{contexts(first:50){nodes{__typename ... on CheckRun{name status conclusion detailsUrl} ... on StatusContext{context state targetUrl}}}}}}}}}}`
	data, err := s.deps.GitHub.Query(context.Background(), query, map[string]any{
		"owner": owner, "repo": repo, "number": prNumber,
	})
	if err != nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, parseCIContexts(data))
}

func parseCIContexts(data map[string]any) []map[string]any {
	nodes := digPath(data, "data", "repository", "pullRequest", "commits", "nodes")
	arr, ok := nodes.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	contexts, ok := digPath(asMapAny(arr[0]), "commit", "statusCheckRollup", "contexts", "nodes").([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(contexts))
	for _, c := range contexts {
		ctx := asMapAny(c)
		if str(ctx, "__typename") == "CheckRun" {
			out = append(out, map[string]any{
				"name":       str(ctx, "name"),
				"status":     strings.ToLower(str(ctx, "status")),
				"conclusion": strings.ToLower(str(ctx, "conclusion")),
				"html_url":   str(ctx, "detailsUrl"),
			})
			continue
		}
		state := strings.ToLower(str(ctx, "state"))
		conclusion := ""
		switch state {
		case "success":
			conclusion = "success"
		case "failure", "error":
			conclusion = "failure"
		}
		status := "in_progress"
		if conclusion != "" {
			status = "completed"
		}
		out = append(out, map[string]any{
			"name":       str(ctx, "context"),
			"status":     status,
			"conclusion": conclusion,
			"html_url":   str(ctx, "targetUrl"),
		})
	}
	return out
}

func asMapAny(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func digPath(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[p]
	}
	return cur
}

func (s *Server) handleRepoFile(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	file := r.URL.Query().Get("file")
	full, err := safeRepoJoin(path, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := os.ReadFile(full)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": string(data)})
}

func (s *Server) handleRepoFileDiff(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	file := r.URL.Query().Get("file")
	diff, err := gitfacade.Diff(path, "HEAD", file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"diff": diff})
}

func (s *Server) handleRepoMarkdownFiles(w http.ResponseWriter, r *http.Request) {
	path := repoPathParam(r)
	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".md") {
			rel, relErr := filepath.Rel(path, p)
			if relErr == nil {
				files = append(files, rel)
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleRepoInitials(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	writeJSON(w, http.StatusOK, map[string]string{"initials": gitfacade.RepoInitials(name)})
}

func (s *Server) handleRepoIsMainBranch(w http.ResponseWriter, r *http.Request) {
	branch := r.URL.Query().Get("branch")
	writeJSON(w, http.StatusOK, map[string]bool{"is_main": gitfacade.IsMainBranch(branch)})
}

func (s *Server) handleRepoBranchRename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path    string `json:"path"`
		OldName string `json:"old_name"`
		NewName string `json:"new_name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := gitfacade.RenameBranch(body.Path, body.OldName, body.NewName); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.deps.InvalidateRepo(body.Path)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// safeRepoJoin resolves file under repoPath, rejecting absolute paths and
// any ".." segment that would escape the repository.
func safeRepoJoin(repoPath, file string) (string, error) {
	if filepath.IsAbs(file) {
		return "", fmt.Errorf("file must be relative")
	}
	full := filepath.Join(repoPath, file)
	rel, err := filepath.Rel(repoPath, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("file escapes repository root")
	}
	return full, nil
}
