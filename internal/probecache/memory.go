package probecache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	return entry, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return missing(key)
	}
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedEntries(m.entries), nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

func (m *MemoryStore) PruneExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pruneMap(m.entries, now), nil
}

func (m *MemoryStore) Close() error { return nil }

// sortedEntries orders newest first, then by key for stable output.
func sortedEntries(entries map[string]Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].StoredAt.After(out[j].StoredAt)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func pruneMap(entries map[string]Entry, now time.Time) int {
	removed := 0
	for key, entry := range entries {
		if entry.Expired(now) {
			delete(entries, key)
			removed++
		}
	}
	return removed
}
