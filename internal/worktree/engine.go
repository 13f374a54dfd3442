package worktree

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// StorageStrategy selects where worktrees for a repo are stored on disk.
type StorageStrategy string

const (
	Sibling     StorageStrategy = "sibling"
	AppDir      StorageStrategy = "app_dir"
	InsideRepo  StorageStrategy = "inside_repo"
)

// Info describes a created worktree, matching spec.md §3 WorktreeInfo.
type Info struct {
	Name     string
	Path     string
	Branch   string
	BaseRepo string
}

// Config is the input to CreateWorktree: which task/branch to check out and
// where.
type Config struct {
	TaskName     string
	BaseRepo     string
	Branch       string
	CreateBranch bool
}

// Engine runs git worktree operations by shelling out to git with an
// explicit cwd, the way internal/gitfacade does.
type Engine struct {
	appDir string // {config_dir}/worktrees, used by the AppDir strategy
	logger *slog.Logger
}

// NewEngine returns a worktree engine that stores AppDir-strategy worktrees
// under appDir.
func NewEngine(appDir string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{appDir: appDir, logger: logger}
}

func runGit(dir string, args ...string) (string, string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// ResolveWorktreeDir resolves the worktree base directory for repoPath under
// the given storage strategy.
func (e *Engine) ResolveWorktreeDir(repoPath string, strategy StorageStrategy) string {
	repoName := filepath.Base(repoPath)
	if repoName == "" || repoName == "." || repoName == string(filepath.Separator) {
		repoName = "repo"
	}
	switch strategy {
	case AppDir:
		return filepath.Join(e.appDir, repoName)
	case InsideRepo:
		return filepath.Join(repoPath, ".worktrees")
	default: // Sibling
		parent := filepath.Dir(repoPath)
		return filepath.Join(parent, repoName+"__wt")
	}
}

// CreateWorktree is idempotent: if the sanitized target directory already
// exists, its info is returned without invoking git again.
func (e *Engine) CreateWorktree(worktreesDir string, cfg Config, baseRef string) (*Info, error) {
	name := SanitizeName(cfg.TaskName)
	path := filepath.Join(worktreesDir, name)

	if _, err := os.Stat(path); err == nil {
		return &Info{Name: name, Path: path, Branch: cfg.Branch, BaseRepo: cfg.BaseRepo}, nil
	}

	if err := os.MkdirAll(worktreesDir, 0755); err != nil {
		return nil, fmt.Errorf("create worktrees directory: %w", err)
	}

	args := []string{"worktree", "add"}
	if cfg.CreateBranch && cfg.Branch != "" {
		args = append(args, "-b", cfg.Branch)
	}
	args = append(args, path)
	if cfg.Branch != "" && !cfg.CreateBranch {
		args = append(args, cfg.Branch)
	}
	if cfg.CreateBranch && baseRef != "" {
		args = append(args, baseRef)
	}

	_, stderr, err := runGit(cfg.BaseRepo, args...)
	if err != nil {
		if strings.Contains(stderr, "already exists") || strings.Contains(stderr, "already checked out") {
			return &Info{Name: name, Path: path, Branch: cfg.Branch, BaseRepo: cfg.BaseRepo}, nil
		}
		return nil, fmt.Errorf("git worktree add failed: %s", stderr)
	}

	if err := copyBootstrapFiles(cfg.BaseRepo, path, e.logger); err != nil {
		e.logger.Warn("bootstrap file copy failed", "repo", cfg.BaseRepo, "worktree", path, "error", err)
	}

	return &Info{Name: name, Path: path, Branch: cfg.Branch, BaseRepo: cfg.BaseRepo}, nil
}

// RemoveWorktree removes wt's git worktree link, force-deletes the directory
// if it remains, and prunes stale entries. "not a working tree" / "No such
// file" are treated as already-removed, not errors.
func (e *Engine) RemoveWorktree(wt *Info) error {
	_, stderr, err := runGit(wt.BaseRepo, "worktree", "remove", "--force", wt.Path)
	if err != nil && !strings.Contains(stderr, "not a working tree") && !strings.Contains(stderr, "No such file") {
		return fmt.Errorf("git worktree remove failed: %s", stderr)
	}

	if _, statErr := os.Stat(wt.Path); statErr == nil {
		if rmErr := os.RemoveAll(wt.Path); rmErr != nil {
			return fmt.Errorf("remove worktree directory: %w", rmErr)
		}
	}

	if _, stderr, err := runGit(wt.BaseRepo, "worktree", "prune"); err != nil {
		e.logger.Warn("git worktree prune failed", "error", stderr)
	}
	return nil
}

// findWorktreePathForBranch scans `git worktree list --porcelain` output for
// the path of the worktree checked out to branch.
func findWorktreePathForBranch(porcelain, branch string) string {
	var currentPath string
	for _, line := range strings.Split(porcelain, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			currentPath = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch refs/heads/"):
			if strings.TrimPrefix(line, "branch refs/heads/") == branch {
				return currentPath
			}
		}
	}
	return ""
}

// RemoveWorktreeByBranch locates the worktree bound to branch via `git
// worktree list --porcelain`, removes it, and optionally deletes the local
// branch (best-effort; failure is logged, not returned).
func (e *Engine) RemoveWorktreeByBranch(repoPath, branch string, deleteBranch bool) error {
	stdout, stderr, err := runGit(repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return fmt.Errorf("git worktree list failed: %s", stderr)
	}

	path := findWorktreePathForBranch(stdout, branch)
	if path == "" {
		return fmt.Errorf("no worktree found for branch %q", branch)
	}

	wt := &Info{Name: branch, Path: path, Branch: branch, BaseRepo: repoPath}
	if err := e.RemoveWorktree(wt); err != nil {
		return err
	}

	if deleteBranch {
		if _, stderr, err := runGit(repoPath, "branch", "-d", branch); err != nil {
			e.logger.Warn("git branch -d failed", "branch", branch, "error", stderr)
		}
	}
	return nil
}

// WorktreePaths returns branch name -> worktree directory for every linked
// worktree carrying a local branch.
func (e *Engine) WorktreePaths(repoPath string) (map[string]string, error) {
	stdout, stderr, err := runGit(repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git worktree list failed: %s", stderr)
	}

	result := make(map[string]string)
	var currentPath string
	for _, line := range strings.Split(stdout, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			currentPath = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch refs/heads/"):
			branch := strings.TrimPrefix(line, "branch refs/heads/")
			if currentPath != "" {
				result[branch] = currentPath
			}
		}
	}
	return result, nil
}

// parseOrphanWorktrees returns the paths of linked worktrees (skipping the
// first, main, block) that are detached with no branch ref.
func parseOrphanWorktrees(porcelain string) []string {
	var orphans []string
	blocks := strings.Split(porcelain, "\n\n")
	first := true
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var path string
		hasBranch := false
		detached := false
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "worktree "):
				path = strings.TrimPrefix(line, "worktree ")
			case strings.HasPrefix(line, "branch refs/heads/"):
				hasBranch = true
			case line == "detached":
				detached = true
			}
		}
		if first {
			first = false
			continue
		}
		if detached && !hasBranch && path != "" {
			orphans = append(orphans, path)
		}
	}
	return orphans
}

// DetectOrphanWorktrees returns the filesystem paths of linked worktrees
// whose branch has been deleted, leaving them in detached-HEAD state.
func (e *Engine) DetectOrphanWorktrees(repoPath string) ([]string, error) {
	stdout, stderr, err := runGit(repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git worktree list failed: %s", stderr)
	}
	return parseOrphanWorktrees(stdout), nil
}

// ArchiveWorktree moves branch's worktree directory to
// {parent}/__archived/{sanitize(branch)}, replacing any existing archive
// with the same name, and returns the archive path.
func (e *Engine) ArchiveWorktree(baseRepo, branch string) (string, error) {
	stdout, stderr, err := runGit(baseRepo, "worktree", "list", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git worktree list failed: %s", stderr)
	}
	wtPath := findWorktreePathForBranch(stdout, branch)
	if wtPath == "" {
		return "", fmt.Errorf("no worktree found for branch %q", branch)
	}

	parentDir := filepath.Dir(wtPath)
	archiveDir := filepath.Join(parentDir, "__archived")
	archiveDest := filepath.Join(archiveDir, SanitizeName(branch))

	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	// Best-effort: drop the worktree's git link first so it isn't tracked
	// from its old path once moved.
	_, _, _ = runGit(baseRepo, "worktree", "remove", "--force", wtPath)

	if _, err := os.Stat(wtPath); err == nil {
		if _, err := os.Stat(archiveDest); err == nil {
			if err := os.RemoveAll(archiveDest); err != nil {
				return "", fmt.Errorf("clean existing archive: %w", err)
			}
		}
		if err := os.Rename(wtPath, archiveDest); err != nil {
			return "", fmt.Errorf("move worktree to archive: %w", err)
		}
	}

	_, _, _ = runGit(baseRepo, "worktree", "prune")
	return archiveDest, nil
}

// AfterMerge selects what happens to a worktree once its branch has been
// merged into the target branch.
type AfterMerge string

const (
	AfterMergeArchive AfterMerge = "archive"
	AfterMergeDelete  AfterMerge = "delete"
	AfterMergeAsk     AfterMerge = "ask"
)

// MergeResult reports the outcome of MergeAndArchiveWorktree.
type MergeResult struct {
	Merged      bool
	Action      string // "archived" | "deleted" | "pending"
	ArchivePath string
}

// MergeAndArchiveWorktree checks out target in the base repo, merges src into
// it, then disposes of src's worktree per afterMerge. On merge failure the
// merge is aborted and the original error text is returned.
func (e *Engine) MergeAndArchiveWorktree(repoPath, src, target string, afterMerge AfterMerge) (*MergeResult, error) {
	if _, stderr, err := runGit(repoPath, "checkout", target); err != nil {
		return nil, fmt.Errorf("failed to checkout %s: %s", target, stderr)
	}

	if _, stderr, err := runGit(repoPath, "merge", src, "--no-edit"); err != nil {
		_, _, _ = runGit(repoPath, "merge", "--abort")
		return nil, fmt.Errorf("merge failed (conflicts?): %s", stderr)
	}

	return e.FinalizeMergedWorktree(repoPath, src, afterMerge)
}

// FinalizeMergedWorktree disposes of a worktree whose branch has already
// been merged, per afterMerge. Used both by MergeAndArchiveWorktree and to
// resolve a prior "ask" result once the caller has decided.
func (e *Engine) FinalizeMergedWorktree(repoPath, branch string, afterMerge AfterMerge) (*MergeResult, error) {
	switch afterMerge {
	case AfterMergeArchive:
		archivePath, err := e.ArchiveWorktree(repoPath, branch)
		if err != nil {
			return nil, err
		}
		return &MergeResult{Merged: true, Action: "archived", ArchivePath: archivePath}, nil
	case AfterMergeDelete:
		if err := e.RemoveWorktreeByBranch(repoPath, branch, true); err != nil {
			return nil, err
		}
		return &MergeResult{Merged: true, Action: "deleted"}, nil
	case AfterMergeAsk:
		return &MergeResult{Merged: true, Action: "pending"}, nil
	default:
		return nil, fmt.Errorf("unknown after-merge action %q", afterMerge)
	}
}

// SwitchResult reports the outcome of SwitchBranch.
type SwitchResult struct {
	Success         bool
	Stashed         bool
	PreviousBranch  string
	NewBranch       string
}

func readBranchFromHead(repoPath string) string {
	data, err := os.ReadFile(filepath.Join(repoPath, ".git", "HEAD"))
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(data))
	return strings.TrimPrefix(line, "ref: refs/heads/")
}

// SwitchBranch checks out branch in repoPath's main worktree. If neither
// force nor stash is set and the tree is dirty, returns the "dirty" sentinel
// error. Returns immediately, as a no-op success, if already on branch.
func (e *Engine) SwitchBranch(repoPath, branch string, force, stash bool) (*SwitchResult, error) {
	previous := readBranchFromHead(repoPath)
	if previous == branch {
		return &SwitchResult{Success: true, PreviousBranch: previous, NewBranch: previous}, nil
	}

	if !force && !stash {
		stdout, stderr, err := runGit(repoPath, "status", "--porcelain")
		if err != nil {
			return nil, fmt.Errorf("failed to check status: %s", stderr)
		}
		if strings.TrimSpace(stdout) != "" {
			return nil, fmt.Errorf("dirty")
		}
	}

	didStash := false
	if stash {
		msg := "auto-stash before switching to " + branch
		stdout, stderr, err := runGit(repoPath, "stash", "push", "-m", msg)
		if err != nil {
			return nil, fmt.Errorf("stash failed: %s", stderr)
		}
		didStash = !strings.Contains(stdout, "No local changes to save")
	}

	args := []string{"checkout"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, branch)
	if _, stderr, err := runGit(repoPath, args...); err != nil {
		return nil, fmt.Errorf("checkout failed: %s", stderr)
	}

	return &SwitchResult{Success: true, Stashed: didStash, PreviousBranch: previous, NewBranch: branch}, nil
}

// CheckoutRemoteBranch runs `git checkout -b <branch> origin/<branch>`.
func (e *Engine) CheckoutRemoteBranch(repoPath, branch string) error {
	remoteRef := "origin/" + branch
	if _, stderr, err := runGit(repoPath, "checkout", "-b", branch, remoteRef); err != nil {
		return fmt.Errorf("checkout failed: %s", stderr)
	}
	return nil
}

// ListLocalBranches lists local branch names, excluding HEAD and
// remote-only refs.
func (e *Engine) ListLocalBranches(repoPath string) ([]string, error) {
	stdout, stderr, err := runGit(repoPath, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, fmt.Errorf("git branch failed: %s", stderr)
	}
	var branches []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// RemoteDefaultBranch resolves the remote's default branch via
// `symbolic-ref`, falling back to checking for local main/master, and
// finally to "main".
func (e *Engine) RemoteDefaultBranch(repoPath string) (string, error) {
	stdout, _, err := runGit(repoPath, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		trimmed := strings.TrimSpace(stdout)
		if branch, ok := strings.CutPrefix(trimmed, "refs/remotes/origin/"); ok && branch != "" {
			return branch, nil
		}
	}

	branches, _ := e.ListLocalBranches(repoPath)
	for _, b := range branches {
		if b == "main" {
			return "main", nil
		}
	}
	for _, b := range branches {
		if b == "master" {
			return "master", nil
		}
	}
	return "main", nil
}

// ListBaseRefOptions returns the remote default branch first, followed by
// every other local branch.
func (e *Engine) ListBaseRefOptions(repoPath string) ([]string, error) {
	def, err := e.RemoteDefaultBranch(repoPath)
	if err != nil {
		return nil, err
	}
	all, err := e.ListLocalBranches(repoPath)
	if err != nil {
		return nil, err
	}
	refs := []string{def}
	for _, b := range all {
		if b != def {
			refs = append(refs, b)
		}
	}
	return refs, nil
}
