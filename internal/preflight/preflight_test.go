package preflight

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"videocompress/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	if CheckDirectoryAccess("test", " ").Passed {
		t.Fatal("expected failure for unconfigured path")
	}
}

func TestCheckRuntime(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := testsupport.WriteStub(t, dir, "ffmpeg", "echo 'ffmpeg version 7.1 Copyright (c) 2000-2024'\n")
	cfg := testsupport.NewConfig(t, testsupport.WithBinaries(ffmpeg, filepath.Join(dir, "missing-ffprobe")))

	results := CheckRuntime(context.Background(), cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Passed || !strings.Contains(results[0].Detail, "ffmpeg version 7.1") {
		t.Fatalf("ffmpeg check: %+v", results[0])
	}
	if results[1].Passed {
		t.Fatalf("missing ffprobe should fail: %+v", results[1])
	}
	if len(Failed(results)) != 1 {
		t.Fatalf("expected one required failure, got %+v", Failed(results))
	}
}

func TestCheckEncoders(t *testing.T) {
	dir := t.TempDir()
	hw := testsupport.WriteStub(t, dir, "ffmpeg-hw", "exit 0\n")
	sw := testsupport.WriteStub(t, dir, "ffmpeg-sw", "exit 1\n")

	cfg := testsupport.NewConfig(t, testsupport.WithBinaries(hw, ""), testsupport.WithCandidates("hevc_vaapi"))
	if r := CheckEncoders(context.Background(), cfg); !r.Passed || !strings.Contains(r.Detail, "hevc_vaapi") {
		t.Fatalf("expected hardware encoder, got %+v", r)
	}

	cfg = testsupport.NewConfig(t, testsupport.WithBinaries(sw, ""), testsupport.WithCandidates("hevc_vaapi"))
	r := CheckEncoders(context.Background(), cfg)
	if !r.Passed || !r.Optional || !strings.Contains(r.Detail, "libx265") {
		t.Fatalf("expected software fallback, got %+v", r)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckDiskSpace(context.Background(), "space", dir, 1); !r.Passed {
		t.Fatalf("expected pass with 1 byte minimum: %+v", r)
	}
	if r := CheckDiskSpace(context.Background(), "space", dir, math.MaxUint64); r.Passed {
		t.Fatalf("expected failure with impossible minimum: %+v", r)
	}
	if r := CheckDiskSpace(context.Background(), "space", "", 1); r.Passed {
		t.Fatal("expected failure for unconfigured path")
	}
}

func TestCheckHostIsOptional(t *testing.T) {
	for _, r := range CheckHost(context.Background()) {
		if !r.Optional {
			t.Fatalf("host check %q should be optional", r.Name)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubbedRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithCandidates("hevc_nvenc"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Work directory", "Log directory", "History directory", "FFmpeg", "FFprobe", "Video encoder", "CPU", "Memory"} {
		if !names[want] {
			t.Errorf("missing check %q", want)
		}
	}
	for _, r := range results {
		if (r.Name == "Work directory" || r.Name == "Log directory" || r.Name == "History directory") && !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}
