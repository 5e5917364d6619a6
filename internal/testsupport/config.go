package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry and throttle delays are zeroed so tests never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.ImageAPI.APIKey = "test"
	cfgVal.Paths.AssetsDir = filepath.Join(base, "assets")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Archive.Dir = filepath.Join(base, "output", "archive")
	cfgVal.Scenes.Source = filepath.Join(base, "images_prompts.md")
	cfgVal.Generation.RetryDelaySeconds = 0
	cfgVal.Generation.ThrottleSeconds = 0
	cfgVal.Video.MinFreeSpaceMB = 0
	cfgVal.API.Bind = "127.0.0.1:0"

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

// WithSceneDocument writes doc as the scene source.
func WithSceneDocument(doc string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.WriteFile(b.cfg.Scenes.Source, []byte(doc), 0o644); err != nil {
			b.t.Fatalf("write scene document: %v", err)
		}
	}
}

// WithImageEndpoint points the image client at url.
func WithImageEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ImageAPI.BaseURL = url
	}
}

// WithImageDuration sets the per-image duration in seconds.
func WithImageDuration(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Video.ImageDuration = seconds
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
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
	return filepath.Dir(cfg.Paths.AssetsDir)
}
