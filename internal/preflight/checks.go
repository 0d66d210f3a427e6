package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"evprobe/internal/config"
	"evprobe/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckCacheBackend verifies the configured cache location is usable.
func CheckCacheBackend(cfg *config.Config) Result {
	const name = "Probe cache"
	if cfg.Cache.Backend == config.CacheBackendMemory {
		return Result{Name: name, Passed: true, Detail: "in-memory (not persisted)"}
	}
	path := strings.TrimSpace(cfg.Cache.Path)
	if path == "" {
		return Result{Name: name, Detail: "cache path not configured"}
	}
	result := CheckDirectoryAccess(name, filepath.Dir(path))
	if result.Passed {
		result.Detail = fmt.Sprintf("%s %s", cfg.Cache.Backend, path)
	}
	return result
}

// CheckFFprobe converts the dependency status of ffprobe into a Result.
// A missing ffprobe is reported but probing still degrades to empty results.
func CheckFFprobe(ctx context.Context, cfg *config.Config) Result {
	status := deps.CheckFFprobe(ctx, cfg.FFprobeBinary())
	return Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
}

// CheckSystemDeps evaluates all executable dependencies for the given config.
// Both "serve" and "status" use this to avoid duplicating the requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, []deps.Requirement{deps.FFprobeRequirement(cfg.FFprobeBinary())})
}
