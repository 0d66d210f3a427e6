package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evprobe/internal/config"
	"evprobe/internal/testsupport"
)

const sampleProbeOutput = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "pix_fmt": "yuv420p"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2, "sample_rate": "48000", "bit_rate": "128000"},
    {"index": 2, "codec_type": "audio", "codec_name": "ac3", "channels": 6, "sample_rate": "48000"}
  ],
  "format": {"filename": "movie.mkv", "format_name": "matroska,webm", "nb_streams": 3, "duration": "60.000000", "size": "1048576", "bit_rate": "139810"}
}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	mediaPath  string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithFFprobeOutput(sampleProbeOutput)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	mediaPath := filepath.Join(cfg.Server.MediaRoot, "movie.mkv")
	testsupport.WriteFile(t, mediaPath, 1024)

	return &cliTestEnv{cfg: cfg, configPath: configPath, mediaPath: mediaPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
