package probecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"evprobe/internal/logging"
	"evprobe/internal/media/ffprobe"
)

// Lookup results reported to a Recorder.
const (
	ResultHit           = "hit"
	ResultMiss          = "miss"
	ResultExpired       = "expired"
	ResultIndeterminate = "indeterminate"
	ResultStoreError    = "store_error"
)

// Loader produces a fresh probe result on a cache miss.
type Loader func(ctx context.Context) (ffprobe.Result, error)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Recorder receives lookup observations.
type Recorder interface {
	ObserveCache(result string)
}

// Options configures a Cache.
type Options struct {
	Namespace string
	Clock     Clock
	Logger    *slog.Logger
	Metrics   Recorder
}

// Cache applies TTL policy on top of a Store.
type Cache struct {
	store     Store
	namespace string
	clock     Clock
	logger    *slog.Logger
	metrics   Recorder
	group     singleflight.Group
}

// New wraps store.
func New(store Store, opts Options) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Cache{
		store:     store,
		namespace: namespace,
		clock:     clock,
		logger:    logging.NewComponentLogger(opts.Logger, "probecache"),
		metrics:   opts.Metrics,
	}
}

// Store returns the backend.
func (c *Cache) Store() Store {
	return c.store
}

// Namespace returns the key prefix.
func (c *Cache) Namespace() string {
	return c.namespace
}

// KeyString returns the stored key for key.
func (c *Cache) KeyString(key Key) string {
	return MakeKey(c.namespace, key)
}

// GetOrLoad returns the cached result for key while it is fresh. Otherwise it
// runs loader, stores its result for ttl (TTLIndefinite never expires) and
// returns it. Concurrent misses on one key share a single loader call. The
// loader runs detached from ctx, so one caller giving up does not fail the
// others; a caller whose ctx ends first gets ctx.Err() wrapped.
//
// When loader fails with ffprobe.ErrIndeterminate the previous value, even an
// expired one, is returned (or an empty Result) and nothing is written. Any
// other loader error is returned unchanged.
func (c *Cache) GetOrLoad(ctx context.Context, key Key, ttl time.Duration, loader Loader) (ffprobe.Result, error) {
	raw := c.KeyString(key)
	logger := c.logger.With(logging.String(logging.FieldCacheKey, raw))

	previous, found := c.lookup(ctx, logger, raw)
	if found && !previous.Expired(c.clock.Now()) {
		c.observe(ResultHit)
		logger.Debug("probe cache hit")
		return previous.Value, nil
	}
	if found {
		c.observe(ResultExpired)
	} else {
		c.observe(ResultMiss)
	}

	// The shared load outlives any one caller; the loader's own timeout bounds it.
	loadCtx := context.WithoutCancel(ctx)
	flight := c.group.DoChan(raw, func() (any, error) {
		result, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.put(loadCtx, logger, raw, result, ttl)
		return result, nil
	})
	var (
		value any
		err   error
	)
	select {
	case <-ctx.Done():
		return ffprobe.Result{}, fmt.Errorf("wait for probe of %s: %w", raw, ctx.Err())
	case res := <-flight:
		value, err = res.Val, res.Err
	}
	if err != nil {
		if errors.Is(err, ffprobe.ErrIndeterminate) {
			c.observe(ResultIndeterminate)
			logger.Info("probe result indeterminate; not caching",
				logging.Bool("stale_value", found),
				logging.Error(err))
			if found {
				return previous.Value, nil
			}
			return ffprobe.Result{}, nil
		}
		return ffprobe.Result{}, err
	}
	return value.(ffprobe.Result), nil
}

func (c *Cache) lookup(ctx context.Context, logger *slog.Logger, key string) (Entry, bool) {
	entry, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.observe(ResultStoreError)
		logging.WarnWithContext(logger, "probe cache read failed", "probecache_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the cache backend path and permissions"),
			logging.String(logging.FieldImpact, "file will be probed again"))
		return Entry{}, false
	}
	return entry, found
}

func (c *Cache) put(ctx context.Context, logger *slog.Logger, key string, value ffprobe.Result, ttl time.Duration) {
	now := c.clock.Now()
	entry := Entry{Key: key, Value: value, StoredAt: now, ExpiresAt: expiry(now, ttl)}
	if err := c.store.Set(ctx, entry); err != nil {
		c.observe(ResultStoreError)
		logging.WarnWithContext(logger, "probe cache write failed", "probecache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the cache backend path and permissions"),
			logging.String(logging.FieldImpact, "result served but not cached"))
		return
	}
	logger.Debug("probe result cached",
		logging.Bool("indefinite", entry.Indefinite()),
		logging.Duration("ttl", ttl))
}

func (c *Cache) observe(result string) {
	if c.metrics != nil {
		c.metrics.ObserveCache(result)
	}
}

// Entries lists stored entries, newest first.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list probe cache: %w", err)
	}
	return entries, nil
}

// Invalidate removes the entry for key.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	return c.InvalidateRaw(ctx, c.KeyString(key))
}

// InvalidateRaw removes the entry stored under the literal key string.
func (c *Cache) InvalidateRaw(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate probe cache entry: %w", err)
	}
	c.logger.Debug("probe cache entry removed", logging.String(logging.FieldCacheKey, key))
	return nil
}

// Purge removes every entry.
func (c *Cache) Purge(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("purge probe cache: %w", err)
	}
	c.logger.Info("probe cache purged")
	return nil
}

// Prune drops expired entries and reports how many were removed.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	removed, err := c.store.PruneExpired(ctx, c.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("prune probe cache: %w", err)
	}
	return removed, nil
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.store.Close()
}
