package probe

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"evprobe/internal/logging"
	"evprobe/internal/media/ffprobe"
	"evprobe/internal/probecache"
	"evprobe/internal/services"
)

var (
	// ErrStreamNotFound reports that no stream matched a selector.
	ErrStreamNotFound = fmt.Errorf("%w: stream not found", services.ErrNotFound)
	// ErrFormatNotFound reports that the file has no container format record.
	ErrFormatNotFound = fmt.Errorf("%w: format not found", services.ErrNotFound)
)

// Session serves metadata lookups for one file. The first successful load is
// kept for the lifetime of the session.
type Session struct {
	prober *Prober
	ref    FileReference

	mu     sync.Mutex
	loaded bool
	result ffprobe.Result
}

// LoadMetadata populates the session from the cache, probing on a miss. The
// selector is part of the cache key; empty means DefaultSelector. It reports
// whether a result, possibly without streams, is available.
func (s *Session) LoadMetadata(ctx context.Context, selector string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return true, nil
	}
	selector = strings.TrimSpace(selector)
	if selector == "" {
		selector = DefaultSelector
	}

	identity := s.ref.Identity()
	logger := s.prober.logger.With(
		logging.String(logging.FieldFile, identity),
		logging.String(logging.FieldSelector, selector),
	)
	path, err := s.ref.LocalPath()
	if err != nil {
		logger.Debug("file reference has no local path", logging.Error(err))
		return false, nil
	}

	ctx = services.WithFile(ctx, identity)
	key := probecache.Key{Identity: identity, Selector: selector}
	result, err := s.prober.cache.GetOrLoad(ctx, key, s.prober.ttlFor(s.ref), func(ctx context.Context) (ffprobe.Result, error) {
		return s.prober.invoker.Invoke(ctx, path)
	})
	if err != nil {
		return false, fmt.Errorf("load metadata for %q: %w", identity, err)
	}
	s.result = result
	s.loaded = true
	logger.Debug("metadata loaded",
		logging.Int("streams", len(result.Streams)),
		logging.Bool("has_format", result.Format != nil))
	return true, nil
}

// Stream returns the stream addressed by selector. Malformed selectors yield
// ErrInvalidSelector; absent streams or unavailable metadata yield
// ErrStreamNotFound.
func (s *Session) Stream(ctx context.Context, selector string) (ffprobe.Stream, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return ffprobe.Stream{}, err
	}
	result, ok, err := s.load(ctx, sel.String())
	if err != nil {
		return ffprobe.Stream{}, err
	}
	if !ok {
		return ffprobe.Stream{}, fmt.Errorf("%w: metadata unavailable for %q", ErrStreamNotFound, s.ref.Identity())
	}
	stream, ok := sel.Find(result.Streams)
	if !ok {
		return ffprobe.Stream{}, fmt.Errorf("%w: %s in %q", ErrStreamNotFound, sel, s.ref.Identity())
	}
	return stream, nil
}

// Streams returns every stream in container order.
func (s *Session) Streams(ctx context.Context) ([]ffprobe.Stream, error) {
	result, ok, err := s.load(ctx, DefaultSelector)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: metadata unavailable for %q", ErrStreamNotFound, s.ref.Identity())
	}
	return append([]ffprobe.Stream(nil), result.Streams...), nil
}

// Format returns the container format record.
func (s *Session) Format(ctx context.Context) (ffprobe.Format, error) {
	result, ok, err := s.load(ctx, DefaultSelector)
	if err != nil {
		return ffprobe.Format{}, err
	}
	if !ok || result.Format == nil {
		return ffprobe.Format{}, fmt.Errorf("%w: %q", ErrFormatNotFound, s.ref.Identity())
	}
	return *result.Format, nil
}

func (s *Session) load(ctx context.Context, selector string) (ffprobe.Result, bool, error) {
	ok, err := s.LoadMetadata(ctx, selector)
	if err != nil || !ok {
		return ffprobe.Result{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, true, nil
}
