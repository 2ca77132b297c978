package config

import (
	"os"
	"path/filepath"
)

const (
	defaultLogDir              = "~/.local/share/videocompress/logs"
	defaultHistoryDB           = "~/.local/share/videocompress/history.db"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultTargetMB            = 100
	defaultSafetyFactor        = 0.90
	defaultMinSegmentMB        = 0.5
	defaultFallbackAudioKbps   = 128
	defaultProgressIntervalMS  = 500
	defaultStaleWorkspaceHours = 24
	defaultProbeTimeoutSeconds = 10
	defaultSoftwareEncoder     = "libx265"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir(),
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Binaries: Binaries{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Compress: Compress{
			DefaultTargetMB:     defaultTargetMB,
			SafetyFactor:        defaultSafetyFactor,
			MinSegmentMB:        defaultMinSegmentMB,
			FallbackAudioKbps:   defaultFallbackAudioKbps,
			ProgressIntervalMS:  defaultProgressIntervalMS,
			StaleWorkspaceHours: defaultStaleWorkspaceHours,
		},
		Encoder: Encoder{
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			Software:            defaultSoftwareEncoder,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultWorkDir() string {
	return filepath.Join(os.TempDir(), "videocompress")
}
