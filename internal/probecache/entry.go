package probecache

import (
	"net/url"
	"strings"
	"time"

	"evprobe/internal/media/ffprobe"
)

const (
	// TTLIndefinite stores an entry until it is invalidated.
	TTLIndefinite time.Duration = 0
	// TTLMinute is the lifetime of entries for transient files.
	TTLMinute = time.Minute

	// DefaultNamespace prefixes every key written by this package.
	DefaultNamespace = "EmbedVideo"
	keyKind          = "ffprobe"
)

// Entry is a stored probe result.
type Entry struct {
	Key       string         `json:"key"`
	Value     ffprobe.Result `json:"value"`
	StoredAt  time.Time      `json:"stored_at"`
	ExpiresAt time.Time      `json:"expires_at,omitzero"`
}

// Indefinite reports whether the entry never expires.
func (e Entry) Indefinite() bool {
	return e.ExpiresAt.IsZero()
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Key identifies a probe result by file identity and stream selector.
type Key struct {
	Identity string
	Selector string
}

// MakeKey builds the stored key string "<namespace>:ffprobe:<identity>:<selector>".
// Components are escaped so that colons inside identities cannot collide.
func MakeKey(namespace string, key Key) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return strings.Join([]string{
		url.QueryEscape(namespace),
		keyKind,
		url.QueryEscape(key.Identity),
		url.QueryEscape(key.Selector),
	}, ":")
}

// ParseKey reverses MakeKey.
func ParseKey(raw string) (namespace string, key Key, ok bool) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 || parts[1] != keyKind {
		return "", Key{}, false
	}
	decoded := make([]string, 0, 3)
	for _, part := range []string{parts[0], parts[2], parts[3]} {
		value, err := url.QueryUnescape(part)
		if err != nil {
			return "", Key{}, false
		}
		decoded = append(decoded, value)
	}
	return decoded[0], Key{Identity: decoded[1], Selector: decoded[2]}, true
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= TTLIndefinite {
		return time.Time{}
	}
	return now.Add(ttl)
}
