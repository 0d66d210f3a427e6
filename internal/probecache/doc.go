// Package probecache stores ffprobe results behind a TTL policy.
//
// Cache.GetOrLoad is the single entry point used by probe sessions: fresh
// entries are returned as-is, misses run the loader once per key, and a loader
// that cannot reach a verdict (ffprobe.ErrIndeterminate) leaves the store
// untouched while the previous value, if any, is handed back.
//
// Three Store backends are provided: an in-process map, a JSON file shared
// across processes via flock, and SQLite.
package probecache
