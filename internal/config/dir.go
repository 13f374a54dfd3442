// Package config provides per-user configuration and persistence for
// tuicommander. Each concern (app settings, notifications, UI preferences,
// per-repo overrides, ...) lives in its own JSON file under the config
// directory; see schemas.go for the full list (spec.md §4.M).
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// EnvConfigDir overrides the resolved config directory (used by tests).
const EnvConfigDir = "TUICOMMANDER_CONFIG_DIR"

const appName = "tuicommander"

// legacyDirName is the previous product name's config directory; its
// contents are migrated into the new location on first run.
const legacyDirName = ".botster_hub"

// ConfigDir returns the platform-specific configuration directory, creating
// it if necessary, and performs a one-time migration from the legacy
// directory name if one exists.
func ConfigDir() (string, error) {
	if testDir := os.Getenv(EnvConfigDir); testDir != "" {
		if err := os.MkdirAll(testDir, 0o700); err != nil {
			return "", err
		}
		return testDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dir := platformConfigDir(home)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	migrateLegacyDir(home, dir)
	return dir, nil
}

func platformConfigDir(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, appName)
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		return filepath.Join(home, ".config", appName)
	}
}

// migrateLegacyDir copies any files from the legacy config directory into
// dir, once. Existing files in dir are never overwritten. Best-effort: a
// file that cannot be read is skipped, write errors are ignored, and the
// migration marker is written either way, so a partial copy is not retried.
func migrateLegacyDir(home, dir string) {
	marker := filepath.Join(dir, ".migrated-from-legacy")
	if _, err := os.Stat(marker); err == nil {
		return
	}

	legacy := filepath.Join(home, legacyDirName)
	entries, err := os.ReadDir(legacy)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			dst := filepath.Join(dir, e.Name())
			if _, err := os.Stat(dst); err == nil {
				continue
			}
			data, err := os.ReadFile(filepath.Join(legacy, e.Name()))
			if err != nil {
				continue
			}
			_ = os.WriteFile(dst, data, 0o600)
		}
	}

	_ = os.WriteFile(marker, []byte("ok"), 0o600)
}
