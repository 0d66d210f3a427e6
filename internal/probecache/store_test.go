package probecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"evprobe/internal/media/ffprobe"
	"evprobe/internal/services"
)

func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			store, err := NewFileStore(filepath.Join(t.TempDir(), "cache", "ffprobe.json"), nil)
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}
			return store
		},
		"sqlite": func(t *testing.T) Store {
			store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "ffprobe.db"))
			if err != nil {
				t.Fatalf("OpenSQLiteStore: %v", err)
			}
			return store
		},
	}
}

func TestStoreContract(t *testing.T) {
	base := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)
	value, err := ffprobe.Parse([]byte(`{"streams":[{"index":0,"codec_type":"audio","codec_name":"aac","duration":"1.5"}],"format":{"format_name":"mp4","size":"42"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			t.Cleanup(func() { _ = store.Close() })

			if _, ok, err := store.Get(ctx, "absent"); err != nil || ok {
				t.Fatalf("Get absent = %v, %v", ok, err)
			}

			forever := Entry{Key: "ns:ffprobe:a:v%3A0", Value: value, StoredAt: base}
			shortLived := Entry{Key: "ns:ffprobe:b:v%3A0", StoredAt: base.Add(time.Second), ExpiresAt: base.Add(time.Minute)}
			for _, entry := range []Entry{forever, shortLived} {
				if err := store.Set(ctx, entry); err != nil {
					t.Fatalf("Set: %v", err)
				}
			}

			got, ok, err := store.Get(ctx, forever.Key)
			if err != nil || !ok {
				t.Fatalf("Get = %v, %v", ok, err)
			}
			if !got.StoredAt.Equal(base) || !got.Indefinite() {
				t.Fatalf("unexpected timestamps %+v", got)
			}
			if codec, _ := got.Value.Streams[0].CodecName(); codec != "aac" {
				t.Fatalf("value not preserved: %q", codec)
			}
			if size := got.Value.SizeBytes(); size != 42 {
				t.Fatalf("format not preserved: %d", size)
			}

			// Stores hand back expired entries; Cache decides freshness.
			expired, ok, err := store.Get(ctx, shortLived.Key)
			if err != nil || !ok || !expired.ExpiresAt.Equal(shortLived.ExpiresAt) {
				t.Fatalf("Get expired = %+v, %v, %v", expired, ok, err)
			}

			entries, err := store.List(ctx)
			if err != nil || len(entries) != 2 || entries[0].Key != shortLived.Key {
				t.Fatalf("List = %+v, %v", entries, err)
			}

			removed, err := store.PruneExpired(ctx, base.Add(time.Minute))
			if err != nil || removed != 1 {
				t.Fatalf("PruneExpired = %d, %v", removed, err)
			}

			err = store.Delete(ctx, shortLived.Key)
			if !errors.Is(err, ErrEntryNotFound) || !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("Delete pruned = %v", err)
			}
			if err := store.Delete(ctx, forever.Key); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			if err := store.Set(ctx, forever); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if entries, _ := store.List(ctx); len(entries) != 0 {
				t.Fatalf("expected empty store, got %d", len(entries))
			}
		})
	}
}

func TestFileStoreSharedBetweenInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffprobe.json")
	first, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	second, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := first.Set(ctx, Entry{Key: "k", StoredAt: time.Now()}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := second.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("second instance Get = %v, %v", ok, err)
	}
}

func TestFileStoreConcurrentReadsReleaseLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffprobe.json")
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Set(ctx, Entry{Key: "k", StoredAt: time.Now()}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				if err := store.Set(ctx, Entry{Key: fmt.Sprintf("k%d", i), StoredAt: time.Now()}); err != nil {
					t.Errorf("Set: %v", err)
				}
				return
			}
			if _, ok, err := store.Get(ctx, "k"); err != nil || !ok {
				t.Errorf("Get = %v, %v", ok, err)
			}
		}()
	}
	wg.Wait()

	other := flock.New(path + ".lock")
	defer other.Close()
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("lock should be free once reads finish: locked=%v err=%v", locked, err)
	}
	_ = other.Unlock()
}

func TestFileStoreRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffprobe.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Fatal("expected read error for corrupt file")
	}
	if err := store.Set(ctx, Entry{Key: "k", StoredAt: time.Now()}); err != nil {
		t.Fatalf("Set should rewrite corrupt file: %v", err)
	}
	if _, ok, err := store.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("Get after rewrite = %v, %v", ok, err)
	}
}

func TestSQLiteStoreReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffprobe.db")
	ctx := context.Background()
	store, err := OpenSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	if err := store.Set(ctx, Entry{Key: "k", StoredAt: time.Now()}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = store.Close()

	reopened, err := OpenSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, err := reopened.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("Get after reopen = %v, %v", ok, err)
	}
}

func TestCacheDegradesOnStoreReadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffprobe.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cache := New(store, Options{})
	loader := &countingLoader{result: resultWithCodec(t, "h264")}
	got, err := cache.GetOrLoad(context.Background(), Key{Identity: "x", Selector: "v:0"}, TTLIndefinite, loader.load)
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if codecOf(t, got) != "h264" || loader.calls.Load() != 1 {
		t.Fatalf("expected loader result, got %q after %d calls", codecOf(t, got), loader.calls.Load())
	}
}
