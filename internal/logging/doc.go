// Package logging assembles structured slog loggers and formatting helpers used
// across evprobe.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so probe code can automatically
// tag log lines with file identities, operations, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape as the rest of the system.
package logging
