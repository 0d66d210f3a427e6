// Package services defines shared utilities consumed by the probe, cache and
// HTTP layers.
//
// Key responsibilities:
//   - Context helpers that stamp file identities, operation names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classifications (caller error vs not found vs tool
//     failure) and HTTP status codes.
//
// Use these helpers when wiring new probing logic so operational behaviour
// (error handling, observability) stays uniform across entrypoints.
package services
