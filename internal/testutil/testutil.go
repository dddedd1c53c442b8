// Package testutil provides shared test helpers for setting up throwaway stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notecli/internal/settings"
)

// Config returns a resolved configuration whose store lives in a fresh
// temporary directory. mutate, when given, edits the settings before they are
// resolved.
func Config(t *testing.T, mutate ...func(*settings.Settings)) *settings.Config {
	t.Helper()
	home := t.TempDir()
	s := settings.Defaults()
	s.StorePath = filepath.Join(home, "store")
	for _, m := range mutate {
		m(&s)
	}
	cfg, err := settings.Resolve(s, home)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// WriteFile creates path with content, making parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
