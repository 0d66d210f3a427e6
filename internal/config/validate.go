package config

import (
	"errors"
	"fmt"
	"strings"

	"evprobe/internal/services"
)

// Validate ensures the configuration is usable. Failures wrap
// services.ErrConfiguration.
func (c *Config) Validate() error {
	for _, check := range []func() error{c.validateProbe, c.validateCache, c.validateLogging} {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validateProbe() error {
	if strings.TrimSpace(c.Probe.FFprobePath) == "" {
		return errors.New("probe.ffprobe_path must be set")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return errors.New("probe.timeout_seconds must be positive")
	}
	if c.Probe.MaxOutputBytes <= 0 {
		return errors.New("probe.max_output_bytes must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendFile, CacheBackendSQLite:
		if strings.TrimSpace(c.Cache.Path) == "" {
			return fmt.Errorf("cache.path must be set for the %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (expected memory, file, or sqlite)", c.Cache.Backend)
	}
	if c.Cache.TransientTTLSeconds <= 0 {
		return errors.New("cache.transient_ttl_seconds must be positive")
	}
	if strings.ContainsAny(c.Cache.Namespace, ":") {
		return errors.New("cache.namespace must not contain ':'")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
