package probecache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrSchemaMismatch indicates the cache database was written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens or creates the cache database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		var version int
		err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
		case err != nil:
			return fmt.Errorf("read schema version: %w", err)
		case version != schemaVersion:
			return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
				ErrSchemaMismatch, version, schemaVersion, s.path)
		}
		return tx.Commit()
	})
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		valueJSON string
		storedAt  string
		expiresAt sql.NullString
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT value_json, stored_at, expires_at FROM probe_cache WHERE cache_key = ?", key,
		).Scan(&valueJSON, &storedAt, &expiresAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query cache entry: %w", err)
	}
	entry, err := decodeRow(key, valueJSON, storedAt, expiresAt)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, entry Entry) error {
	valueJSON, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	var expires sql.NullString
	if !entry.ExpiresAt.IsZero() {
		expires = sql.NullString{String: formatTime(entry.ExpiresAt), Valid: true}
	}
	return s.execWithoutResultRetry(ctx,
		`INSERT INTO probe_cache (cache_key, value_json, stored_at, expires_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(cache_key) DO UPDATE SET
             value_json = excluded.value_json,
             stored_at = excluded.stored_at,
             expires_at = excluded.expires_at`,
		entry.Key, string(valueJSON), formatTime(entry.StoredAt), expires,
	)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM probe_cache WHERE cache_key = ?", key)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return missing(key)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := s.db.QueryContext(ctx,
			"SELECT cache_key, value_json, stored_at, expires_at FROM probe_cache ORDER BY stored_at DESC, cache_key")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key, valueJSON, storedAt string
				expiresAt                sql.NullString
			)
			if err := rows.Scan(&key, &valueJSON, &storedAt, &expiresAt); err != nil {
				return err
			}
			entry, err := decodeRow(key, valueJSON, storedAt, expiresAt)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.execWithoutResultRetry(ctx, "DELETE FROM probe_cache"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// PruneExpired deletes entries whose expiry is at or before now.
func (s *SQLiteStore) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.execWithRetry(ctx,
		"DELETE FROM probe_cache WHERE expires_at IS NOT NULL AND expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return int(affected), nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Timestamps are fixed-width so that text comparison in SQL orders correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

func decodeRow(key, valueJSON, storedAt string, expiresAt sql.NullString) (Entry, error) {
	entry := Entry{Key: key}
	if err := json.Unmarshal([]byte(valueJSON), &entry.Value); err != nil {
		return Entry{}, fmt.Errorf("decode cache value for %q: %w", key, err)
	}
	stored, err := parseTime(storedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("decode stored_at for %q: %w", key, err)
	}
	entry.StoredAt = stored
	if expiresAt.Valid && expiresAt.String != "" {
		expires, err := parseTime(expiresAt.String)
		if err != nil {
			return Entry{}, fmt.Errorf("decode expires_at for %q: %w", key, err)
		}
		entry.ExpiresAt = expires
	}
	return entry, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	ctx = ensureContext(ctx)
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
