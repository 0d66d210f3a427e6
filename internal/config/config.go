package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Cache backend identifiers accepted by cache.backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

// Probe contains settings for the external ffprobe invocation.
type Probe struct {
	FFprobePath    string `toml:"ffprobe_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxOutputBytes int64  `toml:"max_output_bytes"`
}

// Cache contains settings for the probe result cache.
type Cache struct {
	Backend             string `toml:"backend"`
	Path                string `toml:"path"`
	Namespace           string `toml:"namespace"`
	TransientTTLSeconds int    `toml:"transient_ttl_seconds"`
}

// Server contains settings for the HTTP API.
type Server struct {
	Bind                   string `toml:"bind"`
	MediaRoot              string `toml:"media_root"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for evprobe.
//
// Configuration sections by subsystem:
//   - Probe: ffprobe location, timeout and output cap
//   - Cache: result cache backend, location and TTL policy
//   - Server: HTTP API bind address and media root
//   - Logging: log format, level, and optional file sink
type Config struct {
	Probe   Probe   `toml:"probe"`
	Cache   Cache   `toml:"cache"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/evprobe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Environment overrides are applied after the
// file is decoded, so EVPROBE_* variables (including those from a .env file) win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadEnvFile(); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFile populates the process environment from EVPROBE_ENV_FILE (or ./.env).
// Variables already present in the environment are left untouched.
func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("EVPROBE_ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("evprobe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the configured cache backend and
// log sink write into.
func (c *Config) EnsureDirectories() error {
	if c.Cache.Backend != CacheBackendMemory && strings.TrimSpace(c.Cache.Path) != "" {
		dir := filepath.Dir(c.Cache.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		if err := os.MkdirAll(c.Logging.Dir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", c.Logging.Dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if path := strings.TrimSpace(c.Probe.FFprobePath); path != "" {
		return path
	}
	return defaultFFprobePath
}

// ProbeTimeout bounds a single ffprobe invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// TransientTTL is the cache lifetime for probe results of transient files.
func (c *Config) TransientTTL() time.Duration {
	return time.Duration(c.Cache.TransientTTLSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP server shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "evprobe")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/evprobe"
	}
	return filepath.Join(home, ".cache", "evprobe")
}

func defaultCachePath(backend string) string {
	switch backend {
	case CacheBackendFile:
		return filepath.Join(defaultCacheDir(), "ffprobe.json")
	case CacheBackendSQLite:
		return filepath.Join(defaultCacheDir(), "ffprobe.db")
	default:
		return ""
	}
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
