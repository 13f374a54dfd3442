package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHeadWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatal(err)
	}
	headPath := filepath.Join(gitDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	hw, err := NewHeadWatcher(dir, nil)
	if err != nil {
		t.Fatalf("NewHeadWatcher: %v", err)
	}

	fired := make(chan struct{}, 1)
	stop := make(chan struct{})
	go hw.Run(stop, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	defer close(stop)

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/feature\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected HEAD change notification")
	}
}

func TestPluginIDFromPath(t *testing.T) {
	root := "/config/plugins"
	cases := map[string]string{
		"/config/plugins/my-plugin/data/foo.json": "my-plugin",
		"/config/plugins/my-plugin":                "my-plugin",
		"/config/plugins":                          "",
		"/other/path":                               "",
	}
	for path, want := range cases {
		if got := pluginIDFromPath(root, path); got != want {
			t.Fatalf("pluginIDFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
