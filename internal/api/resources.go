package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"evprobe/internal/config"
	"evprobe/internal/logging"
	"evprobe/internal/probe"
)

// ErrConfigRequired is returned when a helper is called without configuration.
var ErrConfigRequired = errors.New("configuration is required")

// OpenProber validates config and builds a prober with its cache backend.
// recorder may be nil.
func OpenProber(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder probe.Recorder) (*probe.Prober, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	prober, err := probe.NewFromConfig(ctx, cfg, logger, recorder)
	if err != nil {
		return nil, fmt.Errorf("initialize prober: %w", err)
	}
	return prober, nil
}
