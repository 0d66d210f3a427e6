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
		{Name: "Blank", Command: "  "},
		{Name: "Versioned", Command: present, VersionArgs: []string{"-version"}},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status: %#v", results[2])
	}
	if !results[3].Available || results[3].Detail != "" {
		t.Fatalf("silent version output should leave detail empty, got %#v", results[3])
	}
}

func TestCheckFFprobeReportsVersion(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "ffprobe")
	script := []byte("#!/bin/sh\necho 'ffprobe version 7.1 Copyright (c) 2007-2024'\necho 'built with gcc'\n")
	if err := os.WriteFile(stub, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := CheckFFprobe(context.Background(), stub)
	if !status.Available {
		t.Fatalf("expected ffprobe available, got %#v", status)
	}
	if status.Detail != "ffprobe version 7.1 Copyright (c) 2007-2024" {
		t.Fatalf("unexpected version detail %q", status.Detail)
	}
}

func TestCheckFFprobeMissing(t *testing.T) {
	status := CheckFFprobe(context.Background(), filepath.Join(t.TempDir(), "ffprobe"))
	if status.Available || status.Detail == "" {
		t.Fatalf("expected unavailable status with detail, got %#v", status)
	}
}

func TestCheckFFprobeNotExecutable(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(stub, []byte("not a program"), 0o644); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if status := CheckFFprobe(context.Background(), stub); status.Available {
		t.Fatalf("expected non-executable file to be unavailable, got %#v", status)
	}
}

func TestResolveFFprobePathFromPATH(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)
	if got := ResolveFFprobePath(""); got != stub {
		t.Fatalf("ResolveFFprobePath = %q, want %q", got, stub)
	}
	if got := ResolveFFprobePath("not-on-path"); got != "not-on-path" {
		t.Fatalf("unresolved binary should be returned unchanged, got %q", got)
	}
}
