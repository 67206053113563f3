package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
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

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset"}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("expected unconfigured requirement to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestProbeExiftoolReportsVersion(t *testing.T) {
	tmp := t.TempDir()
	stub := filepath.Join(tmp, "exiftool")
	script := []byte("#!/bin/sh\necho 12.76\n")
	if err := os.WriteFile(stub, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := ProbeExiftool(context.Background(), stub)
	if !status.Available {
		t.Fatalf("expected stub to be available, got detail %q", status.Detail)
	}
	if status.Detail != "version 12.76" {
		t.Fatalf("unexpected detail: %q", status.Detail)
	}
	if status.Command != stub {
		t.Fatalf("expected command %q, got %q", stub, status.Command)
	}
}

func TestProbeExiftoolMissingBinary(t *testing.T) {
	status := ProbeExiftool(context.Background(), "clearly-not-present-binary")
	if status.Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
}

func TestProbeExiftoolBrokenBinary(t *testing.T) {
	tmp := t.TempDir()
	stub := filepath.Join(tmp, "exiftool")
	script := []byte("#!/bin/sh\nexit 3\n")
	if err := os.WriteFile(stub, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := ProbeExiftool(context.Background(), stub)
	if status.Available {
		t.Fatal("expected failing binary to be unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message for failing binary")
	}
}

func TestProbeExiftoolEmptyCommand(t *testing.T) {
	status := ProbeExiftool(context.Background(), "  ")
	if status.Available {
		t.Fatal("expected empty command to be unavailable")
	}
	if status.Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", status.Detail)
	}
}
