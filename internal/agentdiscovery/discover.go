// Package agentdiscovery locates agent CLI binaries (claude, gemini,
// opencode, aider, codex, ...) that aren't necessarily on PATH when the
// desktop app is launched from a GUI launcher, plus installed IDEs
// (spec.md §4.N).
package agentdiscovery

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Detection is the result of probing for an agent binary.
type Detection struct {
	Path    string
	Version string
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// candidatePaths returns the well-known install locations probed for name,
// in priority order, after a PATH lookup has already failed.
func candidatePaths(name string) []string {
	home := homeDir()
	if runtime.GOOS == "windows" {
		exe := name + ".exe"
		localAppData := os.Getenv("LOCALAPPDATA")
		return []string{
			filepath.Join(home, ".cargo", "bin", exe),
			filepath.Join(home, "go", "bin", exe),
			filepath.Join(localAppData, "Programs", name, exe),
			filepath.Join(home, "scoop", "shims", exe),
			filepath.Join(`C:\Program Files`, name, exe),
		}
	}
	return []string{
		filepath.Join(home, ".local", "bin", name),
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/opt/homebrew/bin", name),
		filepath.Join(home, ".npm-global", "bin", name),
		filepath.Join(home, ".cargo", "bin", name),
		filepath.Join(home, "go", "bin", name),
		filepath.Join(home, ".pyenv", "shims", name),
	}
}

func pathLookupCommand() string {
	if runtime.GOOS == "windows" {
		return "where"
	}
	return "which"
}

// DetectAgentBinary probes PATH first, then the well-known candidate
// directories for name. Returns a zero Detection (empty Path) if nothing is
// found.
func DetectAgentBinary(name string) Detection {
	if out, err := exec.Command(pathLookupCommand(), name).Output(); err == nil {
		firstLine := firstNonEmptyLine(string(out))
		if firstLine != "" {
			if _, statErr := os.Stat(firstLine); statErr == nil {
				return Detection{Path: firstLine, Version: binaryVersion(firstLine)}
			}
		}
	}

	for _, candidate := range candidatePaths(name) {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return Detection{Path: candidate, Version: binaryVersion(candidate)}
		}
	}

	return Detection{}
}

// binaryVersion runs `path --version`, falling back to `-v`, and returns the
// first non-empty stdout line.
func binaryVersion(path string) string {
	if out, err := exec.Command(path, "--version").Output(); err == nil {
		if line := firstNonEmptyLine(string(out)); line != "" {
			return line
		}
	}
	if out, err := exec.Command(path, "-v").Output(); err == nil {
		if line := firstNonEmptyLine(string(out)); line != "" {
			return line
		}
	}
	return ""
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// hasCLI reports whether name resolves via PATH or a well-known candidate.
func hasCLI(name string) bool {
	if _, err := exec.LookPath(name); err == nil {
		return true
	}
	for _, candidate := range candidatePaths(name) {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}

var cliTools = []struct{ id, bin string }{
	{"vscode", "code"},
	{"cursor", "cursor"},
	{"zed", "zed"},
	{"windsurf", "windsurf"},
	{"neovim", "nvim"},
	{"smerge", "smerge"},
	{"kitty", "kitty"},
}

var macAppBundles = []struct{ id, app string }{
	{"vscode", "Visual Studio Code.app"},
	{"cursor", "Cursor.app"},
	{"zed", "Zed.app"},
	{"windsurf", "Windsurf.app"},
	{"xcode", "Xcode.app"},
	{"sourcetree", "Sourcetree.app"},
	{"github-desktop", "GitHub Desktop.app"},
	{"fork", "Fork.app"},
	{"gitkraken", "GitKraken.app"},
	{"ghostty", "Ghostty.app"},
	{"wezterm", "WezTerm.app"},
	{"alacritty", "Alacritty.app"},
	{"warp", "Warp.app"},
}

// DetectInstalledIDEs returns the ids of CLI-detectable editors/terminals,
// plus (on macOS) any additional editors only discoverable as an
// /Applications bundle, plus a synthetic "editor" id when $EDITOR is a
// non-empty string, and the always-present "terminal"/"finder" ids.
func DetectInstalledIDEs() []string {
	var installed []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			installed = append(installed, id)
		}
	}

	for _, t := range cliTools {
		if hasCLI(t.bin) {
			add(t.id)
		}
	}

	if runtime.GOOS == "darwin" {
		for _, b := range macAppBundles {
			if _, err := os.Stat(filepath.Join("/Applications", b.app)); err == nil {
				add(b.id)
			}
		}
	}

	// Empty $EDITOR is treated as absent, not as a configured editor.
	if editor := os.Getenv("EDITOR"); editor != "" {
		add("editor")
	}

	add("terminal")
	add("finder")

	return installed
}
