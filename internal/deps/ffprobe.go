package deps

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveFFprobePath returns the absolute ffprobe path when it can be found,
// otherwise the configured value unchanged.
func ResolveFFprobePath(configured string) string {
	binary := strings.TrimSpace(configured)
	if binary == "" {
		binary = "ffprobe"
	}
	if resolved, err := exec.LookPath(binary); err == nil {
		if abs, absErr := filepath.Abs(resolved); absErr == nil {
			return abs
		}
		return resolved
	}
	return binary
}

// FFprobeRequirement describes the configured ffprobe binary.
func FFprobeRequirement(configured string) Requirement {
	return Requirement{
		Name:        "FFprobe",
		Command:     ResolveFFprobePath(configured),
		Description: "Required for media inspection",
		VersionArgs: []string{"-version"},
	}
}

// CheckFFprobe reports whether ffprobe is executable and, when it is, the
// first line of its -version banner.
func CheckFFprobe(ctx context.Context, configured string) Status {
	return Check(ctx, FFprobeRequirement(configured))
}
