package config

const (
	defaultFFprobePath            = "ffprobe"
	defaultProbeTimeoutSeconds    = 30
	defaultProbeMaxOutputBytes    = 16 << 20
	defaultCacheBackend           = CacheBackendSQLite
	defaultCacheNamespace         = "EmbedVideo"
	defaultTransientTTLSeconds    = 60
	defaultServerBind             = "127.0.0.1:7490"
	defaultShutdownTimeoutSeconds = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Probe: Probe{
			FFprobePath:    defaultFFprobePath,
			TimeoutSeconds: defaultProbeTimeoutSeconds,
			MaxOutputBytes: defaultProbeMaxOutputBytes,
		},
		Cache: Cache{
			Backend:             defaultCacheBackend,
			Namespace:           defaultCacheNamespace,
			TransientTTLSeconds: defaultTransientTTLSeconds,
		},
		Server: Server{
			Bind:                   defaultServerBind,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
