package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"videocompress/internal/bitrate"
	"videocompress/internal/testsupport"
	"videocompress/internal/workspace"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := newCLIEnv(t, 0)

	out, _, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateReportsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	missing := filepath.Join(t.TempDir(), "missing.toml")
	out, _, err := runCLI(t, []string{"config", "validate"}, missing)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "defaults were used")
}

func TestProbeCommand(t *testing.T) {
	env := newCLIEnv(t, 0)
	testsupport.WriteSparse(t, env.input, 3*bitrate.BytesPerMB)

	out, _, err := env.run(t, "probe", env.input)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "3.0 MiB")
	requireContains(t, out, "2m0s")
	requireContains(t, out, "25.000 fps")
	requireContains(t, out, "h264 1280x720")
	requireContains(t, out, "96 kbps")
}

func TestEncodersCommandFallsBackToSoftware(t *testing.T) {
	env := newCLIEnv(t, 0)

	out, _, err := env.run(t, "encoders")
	if err != nil {
		t.Fatalf("encoders: %v", err)
	}
	requireContains(t, out, "hevc_nvenc")
	requireContains(t, out, "two_pass_split")
	requireContains(t, out, "Selected: libx265, single_pass (software fallback)")
}

func TestSplitCommandUsesKeyframe(t *testing.T) {
	env := newCLIEnv(t, 0)
	testsupport.WriteSparse(t, env.input, 50*bitrate.BytesPerMB)

	out, _, err := env.run(t, "split", env.input, "--target", "30")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	requireContains(t, out, "Split at 50s (keyframe) for a 30 MB target")
	requireContains(t, out, "1m10s")
	requireContains(t, out, "kbps")
}

func TestDoctorFailsWithoutFFmpeg(t *testing.T) {
	env := newCLIEnv(t, 0)
	env.cfg.Binaries.FFmpeg = filepath.Join(t.TempDir(), "no-ffmpeg")
	env.configPath = testsupport.WriteConfigFile(t, env.cfg)

	out, _, err := env.run(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out, "== Environment ==")
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "ffprobe version 7.1-stub")
}

func TestCleanListsAndRemovesStaleWorkspaces(t *testing.T) {
	env := newCLIEnv(t, 0)
	root := env.cfg.Paths.WorkDir

	stale := filepath.Join(root, "job-stale")
	if err := os.MkdirAll(stale, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(stale, "segment_a.mp4"), 64)
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	live, err := workspace.Create(root, "live")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	defer live.Cleanup()

	out, _, err := env.run(t, "clean", "--list")
	if err != nil {
		t.Fatalf("clean --list: %v", err)
	}
	requireContains(t, out, "job-stale")
	requireContains(t, out, "job-live")
	requireContains(t, out, "running")
	requireContains(t, out, "Total: 2 workspaces")

	out, _, err = env.run(t, "clean", "--max-age", "1h")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Removed 1 stale workspaces")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale workspace removed, stat err=%v", err)
	}
	if _, err := os.Stat(live.Path()); err != nil {
		t.Fatalf("expected live workspace kept: %v", err)
	}

	out, _, err = env.run(t, "clean")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "No stale workspaces to clean")
}

func TestHistoryShowUnknownJob(t *testing.T) {
	env := newCLIEnv(t, 0)

	if _, _, err := env.run(t, "history", "show", "nope"); err == nil {
		t.Fatal("expected unknown job to fail")
	}
}

func TestLogsFiltersByJob(t *testing.T) {
	env := newCLIEnv(t, 0)
	testsupport.WriteSparse(t, env.input, 50*bitrate.BytesPerMB)
	if _, _, err := env.run(t, "--encoder", "libx265", env.input, "10"); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if _, _, err := env.run(t, "--encoder", "libx265", env.input, "20"); err != nil {
		t.Fatalf("compress: %v", err)
	}

	listing, _, err := env.run(t, "logs", "-n", "1000")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, listing, `"msg":"compression complete"`)

	store := testsupport.MustOpenHistory(t, env.cfg)
	entries, err := store.Recent(context.Background(), 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("recent: %v (%d entries)", err, len(entries))
	}
	jobID := entries[0].JobID

	out, _, err := env.run(t, "logs", "-n", "1000", "--job", shortJobID(jobID))
	if err != nil {
		t.Fatalf("logs --job: %v", err)
	}
	requireContains(t, out, jobID)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.Contains(line, jobID) {
			t.Fatalf("line from another job: %s", line)
		}
	}
}
