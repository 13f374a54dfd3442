package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// loadJSONFile reads name from dir into a value of type T. A missing file
// returns def with no error; a corrupt file is logged and also returns def
// with no error, so callers always get a usable value.
func loadJSONFile[T any](dir, name string, def T, logger *slog.Logger) (T, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return def, nil
		}
		return def, fmt.Errorf("read %s: %w", name, err)
	}

	v := def
	if err := json.Unmarshal(data, &v); err != nil {
		if logger != nil {
			logger.Warn("config file corrupt, using defaults", "file", name, "error", err)
		}
		return def, nil
	}
	return v, nil
}

// saveJSONFile writes v to name under dir atomically: serialize, write to a
// pid-suffixed temp file with mode 0600, then rename over the target. On
// rename failure the temp file is removed rather than left behind.
func saveJSONFile[T any](dir, name string, v T) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if runtime.GOOS != "windows" {
		_ = os.Chmod(tmp, 0o600)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s into place: %w", name, err)
	}
	return nil
}
