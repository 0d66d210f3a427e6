package preflight

import (
	"context"

	"evprobe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckFFprobe(ctx, cfg),
		CheckCacheBackend(cfg),
	}
	if cfg.Server.MediaRoot != "" {
		results = append(results, CheckDirectoryReadable("Media root", cfg.Server.MediaRoot))
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
