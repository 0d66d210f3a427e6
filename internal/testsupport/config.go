package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"evprobe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose cache, log and media directories live in a
// unique temp directory. The ffprobe path points at a file that does not
// exist until WithFFprobeStub or WithFFprobeOutput is applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Probe.FFprobePath = filepath.Join(base, "bin", "ffprobe")
	cfgVal.Cache.Path = filepath.Join(base, "cache", "ffprobe.db")
	cfgVal.Server.MediaRoot = filepath.Join(base, "media")
	cfgVal.Server.Bind = "127.0.0.1:0"
	if err := os.MkdirAll(cfgVal.Server.MediaRoot, 0o755); err != nil {
		t.Fatalf("mkdir media root: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCacheBackend selects the cache backend, placing file-backed stores in the
// temp directory.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
		switch backend {
		case config.CacheBackendMemory:
			b.cfg.Cache.Path = ""
		case config.CacheBackendFile:
			b.cfg.Cache.Path = filepath.Join(b.baseDir, "cache", "ffprobe.json")
		default:
			b.cfg.Cache.Path = filepath.Join(b.baseDir, "cache", "ffprobe.db")
		}
	}
}

// WithFFprobeStub writes an executable shell script with the given body to
// the configured ffprobe path.
func WithFFprobeStub(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteExecutable(b.t, b.cfg.Probe.FFprobePath, "#!/bin/sh\n"+body+"\n")
	}
}

// WithFFprobeOutput installs an ffprobe stub that prints output verbatim.
func WithFFprobeOutput(output string) ConfigOption {
	return func(b *configBuilder) {
		payload := filepath.Join(b.baseDir, "bin", "ffprobe.json")
		if err := os.MkdirAll(filepath.Dir(payload), 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		if err := os.WriteFile(payload, []byte(output), 0o644); err != nil {
			b.t.Fatalf("write ffprobe payload: %v", err)
		}
		WriteExecutable(b.t, b.cfg.Probe.FFprobePath, "#!/bin/sh\ncat '"+payload+"'\n")
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "path-bin")
		for _, name := range names {
			WriteExecutable(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Probe.FFprobePath))
}
