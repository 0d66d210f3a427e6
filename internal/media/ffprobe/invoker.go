package ffprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"evprobe/internal/logging"
	"evprobe/internal/services"
)

const (
	// DefaultBinary is the ffprobe executable looked up on PATH.
	DefaultBinary = "ffprobe"
	// DefaultTimeout bounds a single ffprobe run.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxOutputBytes caps captured stdout.
	DefaultMaxOutputBytes int64 = 16 << 20

	component = "ffprobe"
)

// Probe outcomes reported to a Recorder.
const (
	OutcomeOK             = "ok"
	OutcomeUnavailable    = "unavailable"
	OutcomeParseError     = "parse_error"
	OutcomeTimeout        = "timeout"
	OutcomeCanceled       = "canceled"
	OutcomeOutputTooLarge = "output_too_large"
	OutcomeSpawnError     = "spawn_error"
)

// ErrIndeterminate marks a run whose outcome says nothing about the file
// itself (timeout, cancellation, resource pressure). Callers must not cache it.
var ErrIndeterminate = errors.New("ffprobe outcome indeterminate")

var errOutputTooLarge = errors.New("ffprobe output exceeded limit")

// Recorder receives per-run observations.
type Recorder interface {
	ObserveProbe(outcome string, elapsed time.Duration)
}

// Options configures an Invoker. Zero values select the defaults.
type Options struct {
	Binary         string
	Timeout        time.Duration
	MaxOutputBytes int64
	Logger         *slog.Logger
	Recorder       Recorder
}

// Invoker runs ffprobe and decodes its JSON output.
type Invoker struct {
	binary    string
	timeout   time.Duration
	maxOutput int64
	logger    *slog.Logger
	recorder  Recorder
}

// NewInvoker constructs an Invoker.
func NewInvoker(opts Options) *Invoker {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = DefaultBinary
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := opts.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Invoker{
		binary:    binary,
		timeout:   timeout,
		maxOutput: maxOutput,
		logger:    logger.With(logging.String(logging.FieldComponent, component)),
		recorder:  opts.Recorder,
	}
}

// Binary returns the configured executable.
func (i *Invoker) Binary() string {
	return i.binary
}

// Args returns the argv (excluding the binary) used to probe path.
func Args(path string) []string {
	return []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "--", path}
}

// Invoke probes localPath. A missing tool or unparseable output yields an empty
// Result and a nil error. Timeouts, cancellation, oversized output and
// unexpected spawn failures return an error wrapping ErrIndeterminate.
func (i *Invoker) Invoke(ctx context.Context, localPath string) (Result, error) {
	path := strings.TrimSpace(localPath)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, component, "invoke", "empty path", nil)
	}
	logger := i.logger.With(logging.String(logging.FieldFile, path))
	start := time.Now()

	resolved, err := exec.LookPath(i.binary)
	if err != nil {
		logger.Debug("ffprobe unavailable",
			logging.String(logging.FieldEventType, "ffprobe_unavailable"),
			logging.String("binary", i.binary),
			logging.Error(err),
		)
		i.observe(OutcomeUnavailable, start)
		return Result{}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	stdout := &limitedBuffer{limit: i.maxOutput}
	cmd := exec.CommandContext(runCtx, resolved, Args(path)...)
	cmd.Stdout = stdout
	configureProcess(cmd)

	runErr := cmd.Run()
	elapsed := time.Since(start)

	switch {
	case ctx.Err() != nil:
		i.observe(OutcomeCanceled, start)
		return Result{}, indeterminate(services.ErrTransient, "probe canceled", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		logging.WarnWithContext(logger, "ffprobe timed out", "ffprobe_timeout",
			logging.String(logging.FieldErrorHint, "raise probe.timeout_seconds or check the file is readable"),
			logging.String(logging.FieldImpact, "metadata unavailable for this request"),
			logging.Duration("timeout", i.timeout),
		)
		i.observe(OutcomeTimeout, start)
		return Result{}, indeterminate(services.ErrTimeout, fmt.Sprintf("timed out after %s", i.timeout), runCtx.Err())
	case stdout.overflow:
		logging.WarnWithContext(logger, "ffprobe output exceeded limit", "ffprobe_output_too_large",
			logging.String(logging.FieldErrorHint, "raise probe.max_output_bytes"),
			logging.String(logging.FieldImpact, "metadata unavailable for this request"),
			logging.Int64("limit_bytes", i.maxOutput),
		)
		i.observe(OutcomeOutputTooLarge, start)
		return Result{}, indeterminate(services.ErrExternalTool, "output exceeded limit", errOutputTooLarge)
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		if errors.Is(runErr, os.ErrNotExist) || errors.Is(runErr, os.ErrPermission) {
			logger.Debug("ffprobe not executable",
				logging.String(logging.FieldEventType, "ffprobe_unavailable"),
				logging.Error(runErr),
			)
			i.observe(OutcomeUnavailable, start)
			return Result{}, nil
		}
		i.observe(OutcomeSpawnError, start)
		return Result{}, indeterminate(services.ErrTransient, "spawn ffprobe", runErr)
	}

	// ffprobe exits non-zero for unreadable inputs yet still prints JSON.
	result, err := Parse(stdout.Bytes())
	if err != nil {
		attrs := []logging.Attr{
			logging.String(logging.FieldErrorHint, "verify the ffprobe build emits JSON"),
			logging.String(logging.FieldImpact, "file treated as having no metadata"),
			logging.Error(err),
		}
		if exitErr != nil {
			attrs = append(attrs, logging.Int("exit_code", exitErr.ExitCode()))
		}
		logging.WarnWithContext(logger, "ffprobe output unparseable", "ffprobe_parse_failed", attrs...)
		i.observe(OutcomeParseError, start)
		return Result{}, nil
	}
	logger.Debug("ffprobe complete",
		logging.Int("streams", len(result.Streams)),
		logging.Duration("elapsed", elapsed),
	)
	i.observe(OutcomeOK, start)
	return result, nil
}

func (i *Invoker) observe(outcome string, start time.Time) {
	if i.recorder != nil {
		i.recorder.ObserveProbe(outcome, time.Since(start))
	}
}

func indeterminate(marker error, message string, err error) error {
	return fmt.Errorf("%w: %w", ErrIndeterminate, services.Wrap(marker, component, "invoke", message, err))
}

// limitedBuffer accepts up to limit bytes. Past the limit the write fails,
// which stops exec copying from the pipe.
type limitedBuffer struct {
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(b.buf.Len())
	if int64(len(p)) <= remaining {
		return b.buf.Write(p)
	}
	if remaining > 0 {
		_, _ = b.buf.Write(p[:remaining])
	}
	b.overflow = true
	return 0, errOutputTooLarge
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
