package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"videocompress/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	tempRoot := t.TempDir()
	t.Setenv("TMPDIR", tempRoot)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "videocompress", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	wantHistory := filepath.Join(tempHome, ".local", "share", "videocompress", "history.db")
	if cfg.Paths.HistoryDB != wantHistory {
		t.Fatalf("unexpected history db: got %q want %q", cfg.Paths.HistoryDB, wantHistory)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempRoot, "videocompress") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Compress.SafetyFactor != 0.90 {
		t.Fatalf("unexpected safety factor: %v", cfg.Compress.SafetyFactor)
	}
	if cfg.Compress.MinSegmentMB != 0.5 {
		t.Fatalf("unexpected min segment: %v", cfg.Compress.MinSegmentMB)
	}
	if cfg.Compress.FallbackAudioKbps != 128 {
		t.Fatalf("unexpected fallback audio: %d", cfg.Compress.FallbackAudioKbps)
	}
	if cfg.Encoder.Software != "libx265" {
		t.Fatalf("unexpected software encoder: %q", cfg.Encoder.Software)
	}
	if cfg.ProbeTimeout() != 10*time.Second {
		t.Fatalf("unexpected probe timeout: %v", cfg.ProbeTimeout())
	}
	if cfg.ProgressInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected progress interval: %v", cfg.ProgressInterval())
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.Binaries.FFmpeg != "ffmpeg" || cfg.Binaries.FFprobe != "ffprobe" {
		t.Fatalf("unexpected binaries: %+v", cfg.Binaries)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[paths]
work_dir = "~/scratch"

[compress]
safety_factor = 0.85
min_segment_mb = 1.25

[encoder]
candidates = [" HEVC_VAAPI ", "", "libx265"]

[history]
enabled = false

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Compress.SafetyFactor != 0.85 {
		t.Fatalf("unexpected safety factor: %v", cfg.Compress.SafetyFactor)
	}
	if cfg.Compress.MinSegmentMB != 1.25 {
		t.Fatalf("unexpected min segment: %v", cfg.Compress.MinSegmentMB)
	}
	if got := strings.Join(cfg.Encoder.Candidates, ","); got != "hevc_vaapi,libx265" {
		t.Fatalf("unexpected candidates: %q", got)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[compress]\nsafety = 0.8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestEnvironmentOverridesBinaries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("VIDEOCOMPRESS_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("VIDEOCOMPRESS_FFPROBE", "/opt/ffmpeg/bin/ffprobe")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Binaries.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg: %q", cfg.Binaries.FFmpeg)
	}
	if cfg.Binaries.FFprobe != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("unexpected ffprobe: %q", cfg.Binaries.FFprobe)
	}
}

func TestValidateRejectsBadSafetyFactor(t *testing.T) {
	for _, factor := range []float64{0, 1, 1.2, -0.1} {
		cfg := config.Default()
		cfg.Compress.SafetyFactor = factor
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected safety factor %v to be rejected", factor)
		}
	}
}

func TestValidateRejectsNonPositiveMinSegment(t *testing.T) {
	cfg := config.Default()
	cfg.Compress.MinSegmentMB = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected min segment of zero to be rejected")
	}
}

func TestValidateRejectsHardwareSoftwareEncoder(t *testing.T) {
	for _, name := range []string{"hevc_nvenc", "x264"} {
		cfg := config.Default()
		cfg.Encoder.Software = name
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "encoder.software") {
			t.Fatalf("expected encoder.software error for %q, got %v", name, err)
		}
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default software encoder rejected: %v", err)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging.format error, got %v", err)
	}
}

func TestCreateSampleProducesValidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/videos/out.mp4")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "videos", "out.mp4") {
		t.Fatalf("unexpected path: %q", got)
	}
}
