// Package plugins implements the per-plugin scoped data sandbox: every
// plugin gets {plugin_dir}/{id}/data/{path}, and nothing outside of it.
package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned when id or path fails validation.
var ErrInvalidPath = errors.New("invalid plugin data path")

// Sandbox resolves and guards per-plugin data file paths under a shared
// plugins directory.
type Sandbox struct {
	pluginDir string
}

// New returns a Sandbox rooted at pluginDir ({config_dir}/plugins).
func New(pluginDir string) *Sandbox {
	return &Sandbox{pluginDir: pluginDir}
}

func (s *Sandbox) resolve(id, path string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty plugin id", ErrInvalidPath)
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: id must not contain path separators or ..", ErrInvalidPath)
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: path must not be absolute", ErrInvalidPath)
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: path must not contain ..", ErrInvalidPath)
	}
	return filepath.Join(s.pluginDir, id, "data", filepath.FromSlash(path)), nil
}

// Read returns the contents of the plugin data file. A missing file returns
// an empty slice and no error; any other error is returned explicitly.
func (s *Sandbox) Read(id, path string) ([]byte, error) {
	full, err := s.resolve(id, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin data: %w", err)
	}
	return data, nil
}

// Write creates parent directories as needed and writes data to the plugin
// data file.
func (s *Sandbox) Write(id, path string, data []byte) error {
	full, err := s.resolve(id, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return fmt.Errorf("create plugin data dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0600); err != nil {
		return fmt.Errorf("write plugin data: %w", err)
	}
	return nil
}

// Delete removes the plugin data file. Deleting a missing file is not an
// error.
func (s *Sandbox) Delete(id, path string) error {
	full, err := s.resolve(id, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete plugin data: %w", err)
	}
	return nil
}
