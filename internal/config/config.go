package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// Binaries names the external runtime executables.
type Binaries struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Compress contains the size budgeting and progress settings.
type Compress struct {
	DefaultTargetMB float64 `toml:"default_target_mb"`
	// SafetyFactor under-shoots the computed bitrate to absorb muxing overhead
	// and rate-control variance. Empirical; 0.90 has only been observed to
	// work for typical HEVC bitrates.
	SafetyFactor float64 `toml:"safety_factor"`
	// MinSegmentMB is the smallest video budget a segment may receive.
	MinSegmentMB        float64 `toml:"min_segment_mb"`
	FallbackAudioKbps   int     `toml:"fallback_audio_kbps"`
	ProgressIntervalMS  int     `toml:"progress_interval_ms"`
	StaleWorkspaceHours int     `toml:"stale_workspace_hours"`
}

// Encoder contains capability detection settings.
type Encoder struct {
	// Candidates overrides the platform priority order when non-empty.
	Candidates          []string `toml:"candidates"`
	ProbeTimeoutSeconds int      `toml:"probe_timeout_seconds"`
	Software            string   `toml:"software"`
}

// History contains configuration for the job history database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for videocompress.
//
// Configuration sections by subsystem:
//   - Paths: workspace root, log directory, history database
//   - Binaries: ffmpeg/ffprobe executables
//   - Compress: target size defaults, bitrate safety margin, progress polling
//   - Encoder: hardware candidate order and probe timeout
//   - History: job history toggle
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Binaries Binaries `toml:"binaries"`
	Compress Compress `toml:"compress"`
	Encoder  Encoder  `toml:"encoder"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

const (
	defaultConfigLocation = "~/.config/videocompress/config.toml"
	projectConfigName     = "videocompress.toml"
)

// DefaultConfigPath returns the absolute per-user config location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigLocation)
}

// Load resolves the config file, overlays it on Default, then normalizes and
// validates the result. It also returns the resolved path and whether that
// file existed; a missing file is not an error and yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate picks the config file. An explicit path is used as given even when
// absent. Otherwise the per-user file wins over ./videocompress.toml, and the
// per-user location is reported when neither exists.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		path, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(path); {
		case err == nil:
			return path, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return path, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the workspace root and log directory. The history
// database directory is created on demand by the history store.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ProbeTimeout returns the capability probe deadline.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Encoder.ProbeTimeoutSeconds) * time.Second
}

// ProgressInterval returns the display polling interval.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Compress.ProgressIntervalMS) * time.Millisecond
}

// StaleWorkspaceAge returns the age after which an unlocked workspace is swept.
func (c *Config) StaleWorkspaceAge() time.Duration {
	return time.Duration(c.Compress.StaleWorkspaceHours) * time.Hour
}

// ExpandPath expands a leading "~" to the home directory and returns the
// cleaned absolute path. Empty input stays empty.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample config to path, creating parent
// directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
