package compress

import (
	"runtime"
	"slices"
	"time"

	"videocompress/internal/bitrate"
	"videocompress/internal/config"
	"videocompress/internal/encoder"
)

const (
	defaultProgressInterval = 500 * time.Millisecond
	defaultStaleAge         = 24 * time.Hour
)

// Settings is the immutable configuration of a Compressor.
type Settings struct {
	FFmpeg  string
	FFprobe string
	WorkDir string

	DefaultTargetMB   float64
	Budget            bitrate.Budget
	FallbackAudioKbps int

	// Candidates is the hardware probe order; empty uses the platform order.
	Candidates   []string
	Software     string
	ProbeTimeout time.Duration

	ProgressInterval time.Duration
	// StaleWorkspaceAge is the age past which unlocked workspaces are swept
	// before each job. Zero disables the sweep.
	StaleWorkspaceAge time.Duration
}

// SettingsFromConfig converts a loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpeg:            cfg.Binaries.FFmpeg,
		FFprobe:           cfg.Binaries.FFprobe,
		WorkDir:           cfg.Paths.WorkDir,
		DefaultTargetMB:   cfg.Compress.DefaultTargetMB,
		Budget:            bitrate.Budget{SafetyFactor: cfg.Compress.SafetyFactor, MinSegmentMB: cfg.Compress.MinSegmentMB},
		FallbackAudioKbps: cfg.Compress.FallbackAudioKbps,
		Candidates:        slices.Clone(cfg.Encoder.Candidates),
		Software:          cfg.Encoder.Software,
		ProbeTimeout:      cfg.ProbeTimeout(),
		ProgressInterval:  cfg.ProgressInterval(),
		StaleWorkspaceAge: cfg.StaleWorkspaceAge(),
	}
}

func (s Settings) withDefaults() Settings {
	if s.FFmpeg == "" {
		s.FFmpeg = "ffmpeg"
	}
	if s.FFprobe == "" {
		s.FFprobe = "ffprobe"
	}
	if s.DefaultTargetMB <= 0 {
		s.DefaultTargetMB = 100
	}
	if s.Budget == (bitrate.Budget{}) {
		s.Budget = bitrate.DefaultBudget()
	}
	if len(s.Candidates) == 0 {
		s.Candidates = encoder.Candidates(runtime.GOOS)
	}
	if s.Software == "" {
		s.Software = encoder.Software
	}
	if s.ProgressInterval <= 0 {
		s.ProgressInterval = defaultProgressInterval
	}
	if s.StaleWorkspaceAge < 0 {
		s.StaleWorkspaceAge = defaultStaleAge
	}
	return s
}
