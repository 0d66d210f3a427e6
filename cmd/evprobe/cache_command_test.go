package main

import (
	"testing"

	"evprobe/internal/api"
	"evprobe/internal/config"
	"evprobe/internal/testsupport"
)

func listCache(t *testing.T, env *cliTestEnv) []api.CacheEntry {
	t.Helper()
	out, _, err := runCLI(t, []string{"--json", "cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	var entries []api.CacheEntry
	decodeJSON(t, out, &entries)
	return entries
}

func TestCacheListRemoveClear(t *testing.T) {
	env := setupCLITestEnv(t)

	if entries := listCache(t, env); len(entries) != 0 {
		t.Fatalf("expected empty cache, got %+v", entries)
	}

	for _, selector := range []string{"v:0", "a:1"} {
		if _, _, err := runCLI(t, []string{"stream", env.mediaPath, selector}, env.configPath); err != nil {
			t.Fatalf("stream %s: %v", selector, err)
		}
	}

	entries := listCache(t, env)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	selectors := map[string]bool{}
	for _, entry := range entries {
		selectors[entry.Selector] = true
		if entry.Identity != env.mediaPath {
			t.Fatalf("identity = %q, want %q", entry.Identity, env.mediaPath)
		}
		if entry.Indefinite || entry.ExpiresAt == "" {
			t.Fatalf("transient entry should expire: %+v", entry)
		}
	}
	if !selectors["v:0"] || !selectors["a:1"] {
		t.Fatalf("unexpected selectors %v", selectors)
	}

	out, _, err := runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "Probe cache: 2 entries")

	out, _, err = runCLI(t, []string{"cache", "remove", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("cache remove: %v", err)
	}
	requireContains(t, out, "Removed entry 1")
	if entries := listCache(t, env); len(entries) != 1 {
		t.Fatalf("expected 1 entry after remove, got %+v", entries)
	}

	if _, _, err := runCLI(t, []string{"cache", "remove", "5"}, env.configPath); err == nil {
		t.Fatal("expected error removing missing entry")
	}
	if _, _, err := runCLI(t, []string{"cache", "remove", "zero"}, env.configPath); err == nil {
		t.Fatal("expected error for non-numeric entry")
	}

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 entry")
	if entries := listCache(t, env); len(entries) != 0 {
		t.Fatalf("expected empty cache after clear, got %+v", entries)
	}
}

func TestCachePrune(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"stream", env.mediaPath, "--persistent"}, env.configPath); err != nil {
		t.Fatalf("stream: %v", err)
	}
	out, _, err := runCLI(t, []string{"cache", "prune"}, env.configPath)
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 entries")
	if entries := listCache(t, env); len(entries) != 1 {
		t.Fatalf("persistent entry should survive prune, got %+v", entries)
	}
}

func TestCacheListFileBackend(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCacheBackend(config.CacheBackendFile))

	if _, _, err := runCLI(t, []string{"stream", env.mediaPath}, env.configPath); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if entries := listCache(t, env); len(entries) != 1 {
		t.Fatalf("expected file backend to persist entry, got %+v", entries)
	}
}

func TestCacheListMemoryBackendWarns(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCacheBackend(config.CacheBackendMemory))

	out, _, err := runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "single process")
	requireContains(t, out, "Probe cache: empty")
}
