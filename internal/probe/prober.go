package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"evprobe/internal/config"
	"evprobe/internal/logging"
	"evprobe/internal/media/ffprobe"
	"evprobe/internal/probecache"
)

// Invoker runs ffprobe against a local path.
type Invoker interface {
	Invoke(ctx context.Context, localPath string) (ffprobe.Result, error)
}

// Recorder collects probe and cache observations.
type Recorder interface {
	ffprobe.Recorder
	probecache.Recorder
}

// Prober creates sessions sharing one invoker and cache.
type Prober struct {
	invoker      Invoker
	cache        *probecache.Cache
	logger       *slog.Logger
	transientTTL time.Duration
}

// NewProber wires an invoker to a cache. A nil cache gets an in-memory store.
func NewProber(invoker Invoker, cache *probecache.Cache, logger *slog.Logger) *Prober {
	if cache == nil {
		cache = probecache.New(probecache.NewMemoryStore(), probecache.Options{Logger: logger})
	}
	return &Prober{
		invoker:      invoker,
		cache:        cache,
		logger:       logging.NewComponentLogger(logger, "probe"),
		transientTTL: probecache.TTLMinute,
	}
}

// NewFromConfig builds the invoker and cache described by cfg. recorder may be nil.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder Recorder) (*Prober, error) {
	store, err := probecache.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open probe cache: %w", err)
	}
	invokerOpts := ffprobe.Options{
		Binary:         cfg.FFprobeBinary(),
		Timeout:        cfg.ProbeTimeout(),
		MaxOutputBytes: cfg.Probe.MaxOutputBytes,
		Logger:         logger,
	}
	cacheOpts := probecache.Options{
		Namespace: cfg.Cache.Namespace,
		Logger:    logger,
	}
	if recorder != nil {
		invokerOpts.Recorder = recorder
		cacheOpts.Metrics = recorder
	}
	prober := NewProber(ffprobe.NewInvoker(invokerOpts), probecache.New(store, cacheOpts), logger)
	if ttl := cfg.TransientTTL(); ttl > 0 {
		prober.transientTTL = ttl
	}
	return prober, nil
}

// Cache exposes the underlying cache for management commands.
func (p *Prober) Cache() *probecache.Cache {
	return p.cache
}

// Close releases the cache backend.
func (p *Prober) Close() error {
	return p.cache.Close()
}

// NewSession starts a lookup session for ref.
func (p *Prober) NewSession(ref FileReference) *Session {
	return &Session{prober: p, ref: ref}
}

func (p *Prober) ttlFor(ref FileReference) time.Duration {
	ttl := ref.TTL()
	if _, transient := ref.(Transient); transient {
		ttl = p.transientTTL
	}
	return ttl
}
