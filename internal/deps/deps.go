// Package deps reports on the external executables evprobe shells out to.
package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Requirement describes an executable and how to ask it for its version.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are run after the lookup succeeds; the first
	// output line becomes Status.Detail.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates each requirement in order.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, Check(ctx, req))
	}
	return results
}

// Check resolves req.Command, verifies it is executable and optionally runs
// its version query. A failing version query leaves the binary available.
func Check(ctx context.Context, req Requirement) Status {
	command := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     command,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if command == "" {
		status.Detail = "command not configured"
		return status
	}

	resolved, err := exec.LookPath(command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", command)
		return status
	}
	if info, err := os.Stat(resolved); err != nil || !isExecutable(info) {
		status.Detail = fmt.Sprintf("%q is not executable", resolved)
		return status
	}
	status.Available = true
	if len(req.VersionArgs) == 0 {
		return status
	}

	versionCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(versionCtx, resolved, req.VersionArgs...).Output()
	if err != nil {
		status.Detail = fmt.Sprintf("version check failed (%v)", err)
		return status
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	status.Detail = strings.TrimSpace(line)
	return status
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
