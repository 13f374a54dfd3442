package plugins

import (
	"path/filepath"
	"testing"
)

func TestSandboxWriteReadDelete(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "plugins"))

	if err := s.Write("my-plugin", "notes/todo.txt", []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := s.Read("my-plugin", "notes/todo.txt")
	if err != nil || string(data) != "hello" {
		t.Fatalf("read: %v %q", err, data)
	}

	if err := s.Delete("my-plugin", "notes/todo.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("my-plugin", "notes/todo.txt"); err != nil {
		t.Fatalf("delete should be idempotent: %v", err)
	}

	data, err = s.Read("my-plugin", "notes/todo.txt")
	if err != nil || data != nil {
		t.Fatalf("expected empty read after delete, got %v %q", err, data)
	}
}

func TestSandboxRejectsTraversal(t *testing.T) {
	s := New(t.TempDir())

	cases := []struct{ id, path string }{
		{"", "a.txt"},
		{"../escape", "a.txt"},
		{"plugin", "../escape.txt"},
		{"plugin", "/etc/passwd"},
	}
	for _, c := range cases {
		if _, err := s.Read(c.id, c.path); err == nil {
			t.Fatalf("expected rejection for id=%q path=%q", c.id, c.path)
		}
	}
}
