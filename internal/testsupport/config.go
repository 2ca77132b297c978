package testsupport

import (
	"path/filepath"
	"testing"

	"videocompress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "history.db")
	cfgVal.Compress.ProgressIntervalMS = 20
	cfgVal.Encoder.ProbeTimeoutSeconds = 5

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

// WithBinaries points the config at explicit ffmpeg/ffprobe executables.
func WithBinaries(ffmpeg, ffprobe string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Binaries.FFmpeg = ffmpeg
		b.cfg.Binaries.FFprobe = ffprobe
	}
}

// WithCandidates overrides the hardware encoder probe order.
func WithCandidates(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.Candidates = names
	}
}

// WithStubbedBinaries writes exit-0 ffmpeg and ffprobe stubs under the base
// directory and points the config at them.
func WithStubbedBinaries() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		b.cfg.Binaries.FFmpeg = WriteStub(b.t, binDir, "ffmpeg", "exit 0\n")
		b.cfg.Binaries.FFprobe = WriteStub(b.t, binDir, "ffprobe", "exit 0\n")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
