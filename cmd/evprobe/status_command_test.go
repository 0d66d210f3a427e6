package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"evprobe/internal/deps"
	"evprobe/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("ffprobe", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "ffprobe:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("ffprobe", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "ffprobe", Command: "/usr/bin/ffprobe", Available: true},
		{Name: "mediainfo", Optional: true, Detail: "not installed"},
		{Name: "other"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] Ready (command: /usr/bin/ffprobe)") {
		t.Fatalf("unexpected ready line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] not installed") {
		t.Fatalf("unexpected optional line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] not available") {
		t.Fatalf("unexpected missing line %q", lines[2])
	}
	if !strings.Contains(lines[3], "mediainfo, other") {
		t.Fatalf("unexpected summary line %q", lines[3])
	}
}

func TestCheckLines(t *testing.T) {
	lines := checkLines([]preflight.Result{
		{Name: "Probe cache", Passed: true, Detail: "sqlite"},
		{Name: "Media root", Detail: "missing"},
	}, false)
	if !strings.Contains(lines[0], "[OK] sqlite") || !strings.Contains(lines[1], "[ERROR] missing") {
		t.Fatalf("unexpected check lines %q", lines)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "== Checks ==")
	requireContains(t, out, "Namespace:")

	out, _, err = runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	decodeJSON(t, out, &report)
	if len(report.Dependencies) != 1 || !report.Dependencies[0].Available {
		t.Fatalf("expected ffprobe stub to be available: %+v", report.Dependencies)
	}
	if report.CacheBackend != "sqlite" {
		t.Fatalf("cache backend = %q, want sqlite", report.CacheBackend)
	}
	if failed := preflight.Failed(report.Checks); len(failed) != 0 {
		t.Fatalf("unexpected failed checks: %+v", failed)
	}
}
