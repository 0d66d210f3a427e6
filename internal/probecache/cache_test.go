package probecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"evprobe/internal/media/ffprobe"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func resultWithCodec(t *testing.T, codec string) ffprobe.Result {
	t.Helper()
	result, err := ffprobe.Parse([]byte(`{"streams":[{"codec_type":"video","codec_name":"` + codec + `"}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return result
}

func codecOf(t *testing.T, result ffprobe.Result) string {
	t.Helper()
	if len(result.Streams) == 0 {
		return ""
	}
	codec, _ := result.Streams[0].CodecName()
	return codec
}

type countingLoader struct {
	calls  atomic.Int32
	result ffprobe.Result
	err    error
}

func (l *countingLoader) load(context.Context) (ffprobe.Result, error) {
	l.calls.Add(1)
	return l.result, l.err
}

func TestGetOrLoadIsIdempotentWhileFresh(t *testing.T) {
	clock := newFakeClock()
	cache := New(NewMemoryStore(), Options{Clock: clock})
	loader := &countingLoader{result: resultWithCodec(t, "h264")}
	key := Key{Identity: "File:Clip.webm", Selector: "v:0"}
	ctx := context.Background()

	for range 3 {
		got, err := cache.GetOrLoad(ctx, key, TTLIndefinite, loader.load)
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if codecOf(t, got) != "h264" {
			t.Fatalf("unexpected codec %q", codecOf(t, got))
		}
	}
	if calls := loader.calls.Load(); calls != 1 {
		t.Fatalf("expected loader once, got %d", calls)
	}
}

func TestGetOrLoadTTLPolicy(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	cache := New(store, Options{Clock: clock})
	ctx := context.Background()

	persistent := Key{Identity: "File:Forever.mkv", Selector: "v:0"}
	transient := Key{Identity: "/tmp/upload.mkv", Selector: "v:0"}
	permanentLoader := &countingLoader{result: resultWithCodec(t, "vp9")}
	transientLoader := &countingLoader{result: resultWithCodec(t, "h264")}

	if _, err := cache.GetOrLoad(ctx, persistent, TTLIndefinite, permanentLoader.load); err != nil {
		t.Fatalf("GetOrLoad persistent: %v", err)
	}
	if _, err := cache.GetOrLoad(ctx, transient, TTLMinute, transientLoader.load); err != nil {
		t.Fatalf("GetOrLoad transient: %v", err)
	}

	entry, ok, _ := store.Get(ctx, cache.KeyString(persistent))
	if !ok || !entry.Indefinite() {
		t.Fatalf("expected indefinite persistent entry, got %+v ok=%v", entry, ok)
	}
	entry, ok, _ = store.Get(ctx, cache.KeyString(transient))
	if !ok || !entry.ExpiresAt.Equal(clock.Now().Add(time.Minute)) {
		t.Fatalf("expected one-minute transient entry, got %+v ok=%v", entry, ok)
	}

	clock.Advance(59 * time.Second)
	_, _ = cache.GetOrLoad(ctx, transient, TTLMinute, transientLoader.load)
	if calls := transientLoader.calls.Load(); calls != 1 {
		t.Fatalf("transient reloaded before expiry: %d calls", calls)
	}

	clock.Advance(2 * time.Second)
	_, _ = cache.GetOrLoad(ctx, transient, TTLMinute, transientLoader.load)
	if calls := transientLoader.calls.Load(); calls != 2 {
		t.Fatalf("expected transient reload after expiry, got %d calls", calls)
	}

	clock.Advance(365 * 24 * time.Hour)
	_, _ = cache.GetOrLoad(ctx, persistent, TTLIndefinite, permanentLoader.load)
	if calls := permanentLoader.calls.Load(); calls != 1 {
		t.Fatalf("persistent entry expired: %d calls", calls)
	}
}

func TestGetOrLoadIndeterminateWithoutPreviousValue(t *testing.T) {
	store := NewMemoryStore()
	cache := New(store, Options{Clock: newFakeClock()})
	loader := &countingLoader{err: fmt.Errorf("%w: timed out", ffprobe.ErrIndeterminate)}
	key := Key{Identity: "/tmp/slow.mkv", Selector: "v:0"}

	got, err := cache.GetOrLoad(context.Background(), key, TTLMinute, loader.load)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("expected empty result, got %+v", got)
	}
	if _, ok, _ := store.Get(context.Background(), cache.KeyString(key)); ok {
		t.Fatal("indeterminate outcome must not be stored")
	}
}

func TestGetOrLoadIndeterminatePassesThroughStaleValue(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	cache := New(store, Options{Clock: clock})
	ctx := context.Background()
	key := Key{Identity: "/tmp/clip.mkv", Selector: "v:0"}

	if _, err := cache.GetOrLoad(ctx, key, TTLMinute, (&countingLoader{result: resultWithCodec(t, "h264")}).load); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before, _, _ := store.Get(ctx, cache.KeyString(key))

	clock.Advance(2 * time.Minute)
	failing := &countingLoader{err: fmt.Errorf("%w: busy", ffprobe.ErrIndeterminate)}
	got, err := cache.GetOrLoad(ctx, key, TTLMinute, failing.load)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if codecOf(t, got) != "h264" {
		t.Fatalf("expected stale h264, got %q", codecOf(t, got))
	}
	after, _, _ := store.Get(ctx, cache.KeyString(key))
	if !after.StoredAt.Equal(before.StoredAt) {
		t.Fatal("indeterminate outcome rewrote the entry")
	}
}

func TestGetOrLoadPropagatesOtherErrors(t *testing.T) {
	store := NewMemoryStore()
	cache := New(store, Options{})
	boom := errors.New("boom")
	key := Key{Identity: "x", Selector: "v:0"}

	_, err := cache.GetOrLoad(context.Background(), key, TTLIndefinite, (&countingLoader{err: boom}).load)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), cache.KeyString(key)); ok {
		t.Fatal("failed load must not be stored")
	}
}

func TestGetOrLoadCachesEmptyResults(t *testing.T) {
	cache := New(NewMemoryStore(), Options{})
	loader := &countingLoader{}
	key := Key{Identity: "File:Missing.mkv", Selector: "v:0"}
	for range 2 {
		if _, err := cache.GetOrLoad(context.Background(), key, TTLIndefinite, loader.load); err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
	}
	if calls := loader.calls.Load(); calls != 1 {
		t.Fatalf("determined-empty result should be cached, got %d calls", calls)
	}
}

func TestGetOrLoadDeduplicatesConcurrentMisses(t *testing.T) {
	cache := New(NewMemoryStore(), Options{})
	release := make(chan struct{})
	var calls atomic.Int32
	loader := func(context.Context) (ffprobe.Result, error) {
		calls.Add(1)
		<-release
		return resultWithCodec(t, "av1"), nil
	}
	key := Key{Identity: "File:Busy.mkv", Selector: "v:0"}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrLoad(context.Background(), key, TTLIndefinite, loader); err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one shared load, got %d", n)
	}
}

func TestGetOrLoadCallerCancellationDoesNotFailSharedLoad(t *testing.T) {
	cache := New(NewMemoryStore(), Options{})
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	loader := func(ctx context.Context) (ffprobe.Result, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return ffprobe.Result{}, fmt.Errorf("%w: %w", ffprobe.ErrIndeterminate, err)
		}
		return resultWithCodec(t, "hevc"), nil
	}
	key := Key{Identity: "File:Shared.mkv", Selector: "v:0"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(firstCtx, key, TTLIndefinite, loader)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		result ffprobe.Result
		err    error
	}
	second := make(chan outcome, 1)
	go func() {
		result, err := cache.GetOrLoad(context.Background(), key, TTLIndefinite, loader)
		second <- outcome{result, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should see context.Canceled, got %v", err)
	}
	close(release)

	got := <-second
	if got.err != nil {
		t.Fatalf("live caller: %v", got.err)
	}
	if codec := codecOf(t, got.result); codec != "hevc" {
		t.Fatalf("live caller should receive the shared result, got codec %q", codec)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one shared load, got %d", n)
	}
	if _, found, _ := cache.Store().Get(context.Background(), cache.KeyString(key)); !found {
		t.Fatal("shared result should be cached after the first caller left")
	}
}

type recorder struct {
	mu      sync.Mutex
	results []string
}

func (r *recorder) ObserveCache(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func TestCacheManagementAndMetrics(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	cache := New(NewMemoryStore(), Options{Clock: clock, Metrics: rec, Namespace: "Test"})
	ctx := context.Background()
	loader := &countingLoader{result: resultWithCodec(t, "h264")}

	keep := Key{Identity: "keep", Selector: "v:0"}
	drop := Key{Identity: "drop", Selector: "a:0"}
	_, _ = cache.GetOrLoad(ctx, keep, TTLIndefinite, loader.load)
	_, _ = cache.GetOrLoad(ctx, keep, TTLIndefinite, loader.load)
	_, _ = cache.GetOrLoad(ctx, drop, TTLMinute, loader.load)

	if got := rec.results; len(got) != 3 || got[0] != ResultMiss || got[1] != ResultHit || got[2] != ResultMiss {
		t.Fatalf("unexpected observations %v", got)
	}

	clock.Advance(time.Hour)
	removed, err := cache.Prune(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	entries, err := cache.Entries(ctx)
	if err != nil || len(entries) != 1 || entries[0].Key != "Test:ffprobe:keep:v%3A0" {
		t.Fatalf("unexpected entries %+v err=%v", entries, err)
	}

	if err := cache.Invalidate(ctx, drop); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := cache.Invalidate(ctx, keep); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	_, _ = cache.GetOrLoad(ctx, keep, TTLIndefinite, loader.load)
	if err := cache.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if entries, _ := cache.Entries(ctx); len(entries) != 0 {
		t.Fatalf("expected empty cache, got %d", len(entries))
	}
}
