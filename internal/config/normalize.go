package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBinaries()
	c.normalizeCompress()
	c.normalizeEncoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir()
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
			return fmt.Errorf("paths.log_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeBinaries() {
	if value, ok := os.LookupEnv("VIDEOCOMPRESS_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Binaries.FFmpeg = value
	}
	if value, ok := os.LookupEnv("VIDEOCOMPRESS_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Binaries.FFprobe = value
	}
	c.Binaries.FFmpeg = strings.TrimSpace(c.Binaries.FFmpeg)
	if c.Binaries.FFmpeg == "" {
		c.Binaries.FFmpeg = defaultFFmpegBinary
	}
	c.Binaries.FFprobe = strings.TrimSpace(c.Binaries.FFprobe)
	if c.Binaries.FFprobe == "" {
		c.Binaries.FFprobe = defaultFFprobeBinary
	}
}

func (c *Config) normalizeCompress() {
	if c.Compress.ProgressIntervalMS <= 0 {
		c.Compress.ProgressIntervalMS = defaultProgressIntervalMS
	}
	if c.Compress.FallbackAudioKbps <= 0 {
		c.Compress.FallbackAudioKbps = defaultFallbackAudioKbps
	}
	if c.Compress.StaleWorkspaceHours <= 0 {
		c.Compress.StaleWorkspaceHours = defaultStaleWorkspaceHours
	}
}

func (c *Config) normalizeEncoder() {
	candidates := make([]string, 0, len(c.Encoder.Candidates))
	for _, name := range c.Encoder.Candidates {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			candidates = append(candidates, name)
		}
	}
	c.Encoder.Candidates = candidates
	c.Encoder.Software = strings.ToLower(strings.TrimSpace(c.Encoder.Software))
	if c.Encoder.Software == "" {
		c.Encoder.Software = defaultSoftwareEncoder
	}
	if c.Encoder.ProbeTimeoutSeconds <= 0 {
		c.Encoder.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
