// Package config loads, normalizes, and validates evprobe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// EVPROBE_* environment overrides. The Config type centralizes every knob the
// CLI and HTTP server need: where ffprobe lives, how long it may run, which
// cache backend stores probe results, and how logs are emitted.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
