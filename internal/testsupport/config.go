package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mvspipe/internal/config"
)

// ConfigOption adjusts the config built by NewConfig.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t    testing.TB
	base string
	cfg  *config.Config
}

// NewConfig returns the default config with state, log and image paths moved
// under a per-test temp directory. The accelerator is disabled unless
// WithAccelerator turns it on, so tests never depend on a host GPU.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ImagePath = filepath.Join(base, "source-images")
	cfg.Accelerator.Force = config.AcceleratorDisabled

	b := &configBuilder{t: t, base: base, cfg: &cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b.cfg
}

// WithAccelerator forces accelerator availability on or off.
func WithAccelerator(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Accelerator.Force = config.AcceleratorDisabled
		if enabled {
			b.cfg.Accelerator.Force = config.AcceleratorEnabled
		}
	}
}

// WithColmap installs a shell script as colmap.binary. An empty body exits 0.
func WithColmap(body string) ConfigOption {
	return func(b *configBuilder) {
		if body == "" {
			body = "exit 0\n"
		}
		path := filepath.Join(b.base, "bin", "colmap")
		WriteScript(b.t, path, body)
		b.cfg.Colmap.Binary = path
	}
}

// WriteScript writes an executable /bin/sh script at path.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}
