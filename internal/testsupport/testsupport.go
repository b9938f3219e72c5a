// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"batchpress/internal/config"
)

// Config returns a validated configuration rooted in a fresh temp directory,
// with input/output/log directories created.
func Config(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	def := config.Default()
	cfg := &def
	cfg.Paths.InputDir = filepath.Join(base, "convert")
	cfg.Paths.OutputDir = filepath.Join(base, "converted")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Journal.Path = filepath.Join(base, "journal.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	return cfg
}

// WriteFile creates a file (and parent directories) with the given content.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
