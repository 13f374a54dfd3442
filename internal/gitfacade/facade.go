// Package gitfacade implements the git/GitHub facade (spec.md §4.H): shelling
// out to git, tolerant parsing of its porcelain/JSON output, and a GitHub
// GraphQL client gated by a circuit breaker.
package gitfacade

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RepoInfo is the detected repository root and display name.
type RepoInfo struct {
	Path string
	Name string
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

// DetectRepo walks up from dir to find the repository root (via `git
// rev-parse --show-toplevel`) and derives a display name from the origin
// remote, falling back to the directory's base name.
func DetectRepo(dir string) (*RepoInfo, error) {
	stdout, stderr, err := runGit(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s", stderr)
	}
	root := strings.TrimSpace(stdout)

	name := filepath.Base(root)
	if remote, _, err := runGit(root, "remote", "get-url", "origin"); err == nil {
		if owner, repo, ok := ParseRemoteURL(remote); ok {
			name = owner + "/" + repo
		}
	}

	return &RepoInfo{Path: root, Name: name}, nil
}

// ParseRemoteURL extracts (owner, repo) from a GitHub remote URL, accepting
// both SSH (`git@github.com:owner/repo[.git]`) and HTTPS
// (`https://github.com/owner/repo[.git]`) forms.
func ParseRemoteURL(url string) (owner, repo string, ok bool) {
	url = strings.TrimSpace(url)

	if rest, found := strings.CutPrefix(url, "git@github.com:"); found {
		rest = strings.TrimSuffix(rest, ".git")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], true
		}
		return "", "", false
	}

	if strings.Contains(url, "github.com") {
		rest := strings.TrimPrefix(url, "https://")
		rest = strings.TrimPrefix(rest, "http://")
		rest = strings.TrimPrefix(rest, "github.com/")
		rest = strings.TrimSuffix(rest, ".git")
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], true
		}
	}

	return "", "", false
}

// StatusEntry is one parsed line of `git status --porcelain -z` output.
// Rename entries ("R...") carry both From and Path.
type StatusEntry struct {
	Code string
	Path string
	From string // non-empty only for renames
}

// ParseStatusPorcelainZ parses NUL-separated `git status --porcelain -z`
// output. A rename entry ("R...") consumes an extra NUL-terminated field
// for the original path.
func ParseStatusPorcelainZ(data string) []StatusEntry {
	fields := strings.Split(strings.TrimSuffix(data, "\x00"), "\x00")
	var entries []StatusEntry
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f == "" {
			continue
		}
		if len(f) < 4 {
			continue
		}
		code := f[:2]
		path := f[3:]
		entry := StatusEntry{Code: code, Path: path}
		if strings.HasPrefix(code, "R") || strings.HasPrefix(code, "C") {
			i++
			if i < len(fields) {
				entry.From = fields[i]
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// StatusEntries runs `git status --porcelain -z` in repoPath and parses it.
func StatusEntries(repoPath string) ([]StatusEntry, error) {
	stdout, stderr, err := runGit(repoPath, "status", "--porcelain", "-z")
	if err != nil {
		return nil, fmt.Errorf("git status failed: %s", stderr)
	}
	return ParseStatusPorcelainZ(stdout), nil
}

// DiffStat returns `git diff --stat` output for base (working tree vs base).
func DiffStat(repoPath, base string) (string, error) {
	stdout, stderr, err := runGit(repoPath, "diff", "--stat", base)
	if err != nil {
		return "", fmt.Errorf("git diff --stat failed: %s", stderr)
	}
	return stdout, nil
}

// ValidateBranchName applies the same client-side checks as spec.md §4.H
// before attempting `git branch -m`.
func ValidateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("branch name must not be empty")
	}
	if strings.Contains(name, " ") {
		return fmt.Errorf("branch name must not contain spaces")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("branch name must not start with -")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("branch name must not contain ..")
	}
	if strings.HasSuffix(name, ".lock") {
		return fmt.Errorf("branch name must not end with .lock")
	}
	return nil
}

// RenameBranch validates oldName/newName client-side, then runs
// `git branch -m`.
func RenameBranch(repoPath, oldName, newName string) error {
	if err := ValidateBranchName(newName); err != nil {
		return err
	}
	if _, stderr, err := runGit(repoPath, "branch", "-m", oldName, newName); err != nil {
		return fmt.Errorf("git branch -m failed: %s", stderr)
	}
	return nil
}

// Diff returns the unified diff for path relative to base, or the whole
// working tree diff when path is empty.
func Diff(repoPath, base, path string) (string, error) {
	args := []string{"diff", base}
	if path != "" {
		args = append(args, "--", path)
	}
	stdout, stderr, err := runGit(repoPath, args...)
	if err != nil {
		return "", fmt.Errorf("git diff failed: %s", stderr)
	}
	return stdout, nil
}

// mainBranchNames are the branch names treated as primary, matched
// case-insensitively.
var mainBranchNames = map[string]bool{
	"main": true, "master": true, "develop": true, "development": true, "dev": true,
}

// IsMainBranch reports whether branchName is a main/primary branch name.
func IsMainBranch(branchName string) bool {
	return mainBranchNames[strings.ToLower(branchName)]
}

// RepoInitials derives 2-character initials from a repository name: the
// first letter of each of the first two words (split on '-', '_', and
// whitespace), or the first two characters of a single word.
func RepoInitials(name string) string {
	var sanitized strings.Builder
	for _, r := range name {
		if !strings.ContainsRune("\x00\x01\x02\x03\x04\x05\x06\x07\x08\x0b\x0c\x0e\x0f", r) {
			sanitized.WriteRune(r)
		}
	}
	words := strings.FieldsFunc(sanitized.String(), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '\t' || r == '\n'
	})
	switch {
	case len(words) >= 2:
		return strings.ToUpper(string([]rune(words[0])[:1]) + string([]rune(words[1])[:1]))
	case len(words) == 1:
		runes := []rune(words[0])
		if len(runes) > 2 {
			runes = runes[:2]
		}
		return strings.ToUpper(string(runes))
	default:
		return ""
	}
}

// AheadBehind runs `git rev-list --left-right --count` between the local
// HEAD and its upstream, returning (ahead, behind).
func AheadBehind(repoPath, branch string) (ahead, behind int, err error) {
	stdout, stderr, err := runGit(repoPath, "rev-list", "--left-right", "--count",
		fmt.Sprintf("origin/%s...HEAD", branch))
	if err != nil {
		return 0, 0, fmt.Errorf("git rev-list failed: %s", stderr)
	}
	parts := strings.Fields(stdout)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", stdout)
	}
	fmt.Sscanf(parts[0], "%d", &behind)
	fmt.Sscanf(parts[1], "%d", &ahead)
	return ahead, behind, nil
}

// ReadHeadRef reads the branch name from {repoPath}/.git/HEAD, resolving the
// worktree indirection if .git is a file (linked worktree) rather than a
// directory.
func ReadHeadRef(repoPath string) (string, error) {
	gitDir := filepath.Join(repoPath, ".git")
	headPath := filepath.Join(gitDir, "HEAD")
	if st, err := os.Stat(gitDir); err == nil && !st.IsDir() {
		data, err := os.ReadFile(gitDir)
		if err != nil {
			return "", fmt.Errorf("read .git file: %w", err)
		}
		line := strings.TrimSpace(string(data))
		if gitdir, ok := strings.CutPrefix(line, "gitdir: "); ok {
			headPath = filepath.Join(gitdir, "HEAD")
		}
	}
	data, err := os.ReadFile(headPath)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	line := strings.TrimSpace(string(data))
	return strings.TrimPrefix(line, "ref: refs/heads/"), nil
}
