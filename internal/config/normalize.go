package config

import (
	"fmt"
	"os"
	"strings"
)

// applyEnv overlays EVPROBE_* environment variables onto decoded values.
func (c *Config) applyEnv() {
	if value, ok := lookupEnv("EVPROBE_FFPROBE_PATH"); ok {
		c.Probe.FFprobePath = value
	}
	if value, ok := lookupEnv("EVPROBE_CACHE_BACKEND"); ok {
		c.Cache.Backend = value
	}
	if value, ok := lookupEnv("EVPROBE_CACHE_PATH"); ok {
		c.Cache.Path = value
	}
	if value, ok := lookupEnv("EVPROBE_LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalize() error {
	c.normalizeProbe()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeProbe() {
	c.Probe.FFprobePath = strings.TrimSpace(c.Probe.FFprobePath)
	if c.Probe.FFprobePath == "" {
		c.Probe.FFprobePath = defaultFFprobePath
	}
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Probe.MaxOutputBytes <= 0 {
		c.Probe.MaxOutputBytes = defaultProbeMaxOutputBytes
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	c.Cache.Namespace = strings.TrimSpace(c.Cache.Namespace)
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = defaultCacheNamespace
	}
	if c.Cache.TransientTTLSeconds <= 0 {
		c.Cache.TransientTTLSeconds = defaultTransientTTLSeconds
	}
	if c.Cache.Backend == CacheBackendMemory {
		c.Cache.Path = ""
		return nil
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath(c.Cache.Backend)
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
	var err error
	if c.Server.MediaRoot, err = expandPath(strings.TrimSpace(c.Server.MediaRoot)); err != nil {
		return fmt.Errorf("server.media_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
