package probecache

import (
	"context"
	"fmt"
	"time"

	"evprobe/internal/services"
)

// Store is a cache backend. Get returns entries even when they are expired;
// freshness is decided by Cache.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
	PruneExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// ErrEntryNotFound is returned by Delete when the key is absent.
var ErrEntryNotFound = fmt.Errorf("%w: cache entry not found", services.ErrNotFound)

func missing(key string) error {
	return fmt.Errorf("%w: %q", ErrEntryNotFound, key)
}
