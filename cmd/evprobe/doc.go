// Package main hosts the evprobe CLI entrypoint and command graph.
//
// The Cobra command tree wraps the probe session API for one-off lookups
// (stream, streams, format), exposes cache maintenance, scaffolds
// configuration, reports dependency status, and runs the HTTP API. Config
// resolution, logger construction and prober setup live in commandContext so
// subcommands only deal with presentation.
package main
