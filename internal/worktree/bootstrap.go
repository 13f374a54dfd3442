package worktree

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// BootstrapCopyFile is the glob-pattern manifest a repo may keep at its root
// to have select files (env files, local config, anything gitignored but
// needed for a fresh checkout to run) copied into every worktree cut from it.
const BootstrapCopyFile = ".worktree-copy"

// readBootstrapPatterns reads BootstrapCopyFile from repoPath: one glob
// pattern per line, blank lines and "#" comments skipped. A missing file
// yields no patterns, not an error.
func readBootstrapPatterns(repoPath string) ([]string, error) {
	f, err := os.Open(filepath.Join(repoPath, BootstrapCopyFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", BootstrapCopyFile, err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", BootstrapCopyFile, err)
	}
	return patterns, nil
}

// copyBootstrapFiles copies every file under sourceRepo whose path (relative
// to the repo root) matches one of BootstrapCopyFile's glob patterns into the
// same relative path under destWorktree. Best-effort: a bad pattern or a
// single file's copy failure is logged and skipped, never aborts the rest.
func copyBootstrapFiles(sourceRepo, destWorktree string, logger *slog.Logger) error {
	patterns, err := readBootstrapPatterns(sourceRepo)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		return nil
	}

	var globs []glob.Glob
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			logger.Warn("invalid bootstrap copy pattern", "pattern", pattern, "error", err)
			continue
		}
		globs = append(globs, g)
	}
	if len(globs) == 0 {
		return nil
	}

	return filepath.Walk(sourceRepo, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		relPath, err := filepath.Rel(sourceRepo, path)
		if err != nil {
			return nil
		}
		for _, g := range globs {
			if !g.Match(relPath) {
				continue
			}
			destPath := filepath.Join(destWorktree, relPath)
			if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
				logger.Warn("bootstrap copy: create directory failed", "path", filepath.Dir(destPath), "error", err)
				break
			}
			if err := copyFilePreservingMode(path, destPath); err != nil {
				logger.Warn("bootstrap copy: copy failed", "src", relPath, "error", err)
			}
			break
		}
		return nil
	})
}

func copyFilePreservingMode(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, info.Mode())
}
