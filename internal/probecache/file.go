package probecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"evprobe/internal/logging"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore persists entries as a JSON array. Every operation re-reads the
// file under a flock on "<path>.lock", so several processes may share it.
// A flock.Flock holds one lock state, so mu serialises all operations within
// the process, reads included.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
	lock   *flock.Flock
}

// NewFileStore creates a store backed by path. The file is created lazily on
// the first write.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{
		path:   path,
		logger: logging.NewComponentLogger(logger, "probecache.file"),
		lock:   flock.New(path + ".lock"),
	}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	err := s.read(ctx, func(entries map[string]Entry) {
		entry, found = entries[key]
	})
	return entry, found, err
}

func (s *FileStore) Set(ctx context.Context, entry Entry) error {
	return s.update(ctx, func(entries map[string]Entry) error {
		entries[entry.Key] = entry
		return nil
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(entries map[string]Entry) error {
		if _, ok := entries[key]; !ok {
			return missing(key)
		}
		delete(entries, key)
		return nil
	})
}

func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := s.read(ctx, func(entries map[string]Entry) {
		out = sortedEntries(entries)
	})
	return out, err
}

func (s *FileStore) Clear(ctx context.Context) error {
	return s.update(ctx, func(entries map[string]Entry) error {
		clear(entries)
		return nil
	})
}

func (s *FileStore) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := s.update(ctx, func(entries map[string]Entry) error {
		removed = pruneMap(entries, now)
		return nil
	})
	return removed, err
}

func (s *FileStore) Close() error {
	return s.lock.Close()
}

func (s *FileStore) read(ctx context.Context, fn func(map[string]Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.lock.TryRLockContext(ctx, lockRetryDelay); err != nil || !ok {
		return fmt.Errorf("acquire shared cache lock: %w", lockErr(ctx, err))
	}
	defer func() { _ = s.lock.Unlock() }()

	entries, err := s.load()
	if err != nil {
		return err
	}
	fn(entries)
	return nil
}

func (s *FileStore) update(ctx context.Context, fn func(map[string]Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil || !ok {
		return fmt.Errorf("acquire cache lock: %w", lockErr(ctx, err))
	}
	defer func() { _ = s.lock.Unlock() }()

	entries, err := s.load()
	if err != nil {
		// A corrupt file is rewritten rather than wedging every later write.
		s.logger.Warn("discarding unreadable probe cache file",
			logging.String(logging.FieldEventType, "probecache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "previously probed files will be probed again"),
			logging.String("path", s.path))
		entries = make(map[string]Entry)
	}
	if err := fn(entries); err != nil {
		return err
	}
	return s.save(entries)
}

func lockErr(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.New("lock not acquired")
}

// load reads the cache file. Callers hold the flock.
func (s *FileStore) load() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}

	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	for _, entry := range list {
		if strings.TrimSpace(entry.Key) != "" {
			entries[entry.Key] = entry
		}
	}
	return entries, nil
}

// save writes the cache atomically via a temp file.
func (s *FileStore) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(sortedEntries(entries), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	s.logger.Debug("persisted probe cache",
		logging.Int("entry_count", len(entries)),
		logging.String("path", s.path))
	return nil
}
