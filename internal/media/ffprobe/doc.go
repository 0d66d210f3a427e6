// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no evprobe-specific dependencies beyond logging and error
// markers and could be extracted as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//   - Optional: a field value that may be unavailable
//
// Primary entry points:
//   - Invoker.Invoke: executes ffprobe with a timeout and output cap
//   - Parse: decodes raw ffprobe JSON
//
// Every field is decoded once at parse time. Fields ffprobe omits, or reports
// as "N/A", are unavailable rather than zero, so callers can distinguish a
// 0x0 stream from one without dimensions.
package ffprobe
