package probe

import (
	"path/filepath"
	"strings"
	"time"

	"evprobe/internal/probecache"
	"evprobe/internal/services"
)

// FileReference identifies a media file and decides how long its probe
// results may be cached. The variants are Persistent and Transient.
type FileReference interface {
	// Identity is the stable name used in cache keys.
	Identity() string
	// LocalPath is the filesystem path handed to ffprobe.
	LocalPath() (string, error)
	// TTL is the cache lifetime; probecache.TTLIndefinite never expires.
	TTL() time.Duration
	isFileReference()
}

// Persistent is a file in the permanent asset store. Its results are cached
// until invalidated.
type Persistent struct {
	Name string
	Path string
}

// Transient is an upload or scratch file. Its results are cached briefly.
type Transient struct {
	Name string
	Path string
}

// PathReference treats a bare path as a transient file keyed by its cleaned path.
func PathReference(path string) Transient {
	return Transient{Path: path}
}

func (p Persistent) Identity() string           { return identity(p.Name, p.Path) }
func (p Persistent) LocalPath() (string, error) { return localPath(p.Path) }
func (Persistent) TTL() time.Duration           { return probecache.TTLIndefinite }
func (Persistent) isFileReference()             {}

func (t Transient) Identity() string           { return identity(t.Name, t.Path) }
func (t Transient) LocalPath() (string, error) { return localPath(t.Path) }
func (Transient) TTL() time.Duration           { return probecache.TTLMinute }
func (Transient) isFileReference()             {}

func identity(name, path string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

func localPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "probe", "resolve path", "file reference has no local path", nil)
	}
	return filepath.Clean(path), nil
}
