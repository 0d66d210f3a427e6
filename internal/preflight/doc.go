// Package preflight provides readiness checks for the executables and
// filesystem paths evprobe depends on.
//
// These checks run in two contexts:
//   - "evprobe serve" calls RunAll before binding and logs any failures.
//   - "evprobe status" renders the same results alongside dependency status.
//
// Checks for optional paths (media root, log directory) are skipped when the
// path is not configured.
package preflight
