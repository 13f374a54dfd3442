// Package watch implements the debounced filesystem watchers: one over the
// plugins directory (reporting which plugin ids changed) and one per repo's
// .git/HEAD (reporting that the checked-out branch may have changed).
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is the quiet period after the last filesystem event
// before a change notification fires.
const DebounceInterval = 500 * time.Millisecond

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true, "build": true,
}

// PluginWatcher watches the plugins directory recursively and reports the
// distinct set of first-path-component plugin ids that changed since the
// last debounce fired.
type PluginWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	logger  *slog.Logger
}

// NewPluginWatcher creates (but does not start) a watcher over root.
func NewPluginWatcher(root string, logger *slog.Logger) (*PluginWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	pw := &PluginWatcher{watcher: w, root: root, logger: logger}
	pw.addDirsRecursive(root)
	return pw, nil
}

func (p *PluginWatcher) addDirsRecursive(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if skipDirs[base] || (strings.HasPrefix(base, ".") && base != filepath.Base(root)) {
			return filepath.SkipDir
		}
		if err := p.watcher.Add(path); err != nil && p.logger != nil {
			p.logger.Warn("plugin watcher add failed", "path", path, "error", err)
		}
		return nil
	})
}

// Run blocks, invoking onChanged with the set of changed plugin ids each
// time the debounce interval elapses after the last event. It returns when
// stop is closed or the underlying watcher errors out.
func (p *PluginWatcher) Run(stop <-chan struct{}, onChanged func(pluginIDs []string)) {
	defer p.watcher.Close()

	changed := make(map[string]bool)
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if id := pluginIDFromPath(p.root, ev.Name); id != "" {
				changed[id] = true
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(DebounceInterval)
			timerCh = timer.C
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			if p.logger != nil {
				p.logger.Warn("plugin watcher error", "error", err)
			}
		case <-timerCh:
			timerCh = nil
			if len(changed) == 0 {
				continue
			}
			ids := make([]string, 0, len(changed))
			for id := range changed {
				ids = append(ids, id)
			}
			changed = make(map[string]bool)
			onChanged(ids)
		}
	}
}

func pluginIDFromPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return ""
	}
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	if parts[0] == ".." {
		return ""
	}
	return parts[0]
}

// HeadWatcher watches a single repo's .git/HEAD file and reports whenever it
// changes (branch switch, checkout, rebase, etc.).
type HeadWatcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewHeadWatcher watches repoPath/.git/HEAD (or repoPath/.git if HEAD is a
// file reference to a worktree's own .git file's gitdir).
func NewHeadWatcher(repoPath string, logger *slog.Logger) (*HeadWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	gitDir := filepath.Join(repoPath, ".git")
	headPath := filepath.Join(gitDir, "HEAD")
	if st, err := os.Stat(gitDir); err == nil && !st.IsDir() {
		// worktree: .git is a file pointing elsewhere; watch the .git file
		// itself since its target's HEAD isn't directly reachable by path.
		headPath = gitDir
	}
	if err := w.Add(headPath); err != nil {
		w.Close()
		return nil, err
	}
	return &HeadWatcher{watcher: w, logger: logger}, nil
}

// Run blocks, invoking onChanged after each debounce interval following a
// HEAD modification. Returns when stop is closed or the watcher errors out.
func (h *HeadWatcher) Run(stop <-chan struct{}, onChanged func()) {
	defer h.watcher.Close()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-stop:
			return
		case _, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(DebounceInterval)
			timerCh = timer.C
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			if h.logger != nil {
				h.logger.Warn("head watcher error", "error", err)
			}
		case <-timerCh:
			timerCh = nil
			onChanged()
		}
	}
}
