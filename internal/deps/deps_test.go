package deps

import (
	"os"
	"path/filepath"
	"testing"

	"batchpress/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset"}})
	if results[0].Available {
		t.Fatal("expected unconfigured command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestForConfigUsesConfiguredBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFprobe = "/opt/ffmpeg/bin/ffprobe"
	reqs := ForConfig(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("unexpected ffprobe command: %s", reqs[0].Command)
	}
	if reqs[1].Command != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg command: %s", reqs[1].Command)
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Available: false},
		{Name: "c", Available: false, Optional: true},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "b" {
		t.Fatalf("missing = %v, want [b]", missing)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	status := CheckFreeSpace(t.TempDir(), 1)
	if !status.Available {
		t.Fatalf("expected temp dir to have at least one free byte: %s", status.Detail)
	}
	if status.Detail == "" {
		t.Fatal("expected a human-readable detail")
	}
}

func TestCheckFreeSpaceMissingDir(t *testing.T) {
	status := CheckFreeSpace(filepath.Join(t.TempDir(), "nope"), 1)
	if status.Available {
		t.Fatal("expected statfs on a missing directory to fail")
	}
}
