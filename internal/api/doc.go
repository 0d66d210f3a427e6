// Package api exposes probe lookups over HTTP and defines the transport types
// shared by the HTTP handlers and the CLI's JSON output.
//
// # Routes
//
//	GET /v1/streams?path=<p>&select=v:0[&persistent=true&name=<id>]
//	GET /v1/streams/all?path=<p>
//	GET /v1/format?path=<p>
//	GET /healthz
//	GET /metrics
//
// # Key Types
//
// StreamView and FormatView: optional ffprobe fields rendered as nullable JSON
// members so absent values are distinguishable from zero.
//
// CacheEntry: a stored probe result summarised for listing.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors are classified with the services markers and mapped to status codes
// by services.HTTPStatus; paths outside server.media_root are rejected with 403.
package api
