package probecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"evprobe/internal/config"
)

// Open builds the Store selected by cfg.Cache.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("open probe cache: config is nil")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		return NewMemoryStore(), nil
	case config.CacheBackendFile:
		return NewFileStore(cfg.Cache.Path, logger)
	case config.CacheBackendSQLite, "":
		return OpenSQLiteStore(ctx, cfg.Cache.Path)
	default:
		return nil, fmt.Errorf("open probe cache: unsupported backend %q", cfg.Cache.Backend)
	}
}
