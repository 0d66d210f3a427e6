package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"evprobe/internal/config"
	"evprobe/internal/deps"
	"evprobe/internal/preflight"
)

type statusReport struct {
	ConfigPath   string             `json:"configPath,omitempty"`
	CacheBackend string             `json:"cacheBackend"`
	CachePath    string             `json:"cachePath,omitempty"`
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report ffprobe availability and cache health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{
				ConfigPath:   ctx.configPath(),
				CacheBackend: cfg.Cache.Backend,
				CachePath:    cfg.Cache.Path,
				Dependencies: preflight.CheckSystemDeps(cmd.Context(), cfg),
				Checks:       preflight.RunAll(cmd.Context(), cfg),
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(report.Dependencies, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			lines = append(lines, checkLines(report.Checks, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Cache", colorize)...)
			lines = append(lines, cacheLines(cfg, colorize)...)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			if dep.Detail != "" {
				message += " " + dep.Detail
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusWarn,
			strings.Join(missing, ", ")+" (probes will return empty metadata)", colorize))
	}
	return lines
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

func cacheLines(cfg *config.Config, colorize bool) []string {
	location := cfg.Cache.Path
	if location == "" {
		location = "in-process"
	}
	return []string{
		renderStatusLine("Backend", statusInfo, cfg.Cache.Backend, colorize),
		renderStatusLine("Location", statusInfo, location, colorize),
		renderStatusLine("Namespace", statusInfo, cfg.Cache.Namespace, colorize),
		renderStatusLine("Transient TTL", statusInfo, cfg.TransientTTL().String(), colorize),
	}
}
