package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"videocompress/internal/services"
)

func writeFFmpegStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestSelectReturnsFirstAvailable(t *testing.T) {
	stub := writeFFmpegStub(t, `case "$*" in
*"-c:v hevc_vaapi"*) exit 0 ;;
esac
echo "Unknown encoder" >&2
exit 1
`)
	detector := NewDetector(stub, time.Second, "", nil)
	selection := detector.Select(context.Background(), []string{"hevc_nvenc", "hevc_vaapi", "hevc_qsv"})

	if selection.Backend.Name != "hevc_vaapi" || selection.Fallback {
		t.Fatalf("unexpected selection: %+v", selection)
	}
	if len(selection.Probes) != 2 {
		t.Fatalf("expected probing to stop at first success, got %+v", selection.Probes)
	}
	if selection.Probes[0].Available || selection.Probes[0].Reason == "" {
		t.Fatalf("expected nvenc unavailable with reason, got %+v", selection.Probes[0])
	}
}

func TestSelectFallsBackToSoftware(t *testing.T) {
	stub := writeFFmpegStub(t, "exit 1\n")
	detector := NewDetector(stub, time.Second, "libx265", nil)
	selection := detector.Select(context.Background(), Candidates("linux"))

	if selection.Backend.Name != Software || !selection.Fallback {
		t.Fatalf("expected software fallback, got %+v", selection)
	}
	if len(selection.Probes) != 2 {
		t.Fatalf("expected every candidate probed, got %d", len(selection.Probes))
	}
}

func TestHardwareFallbackNameIsReplacedBySoftware(t *testing.T) {
	stub := writeFFmpegStub(t, "exit 1\n")
	detector := NewDetector(stub, time.Second, "hevc_nvenc", nil)
	selection := detector.Select(context.Background(), Candidates("linux"))

	if selection.Backend.Name != Software || !selection.Backend.Software || !selection.Fallback {
		t.Fatalf("expected libx265 fallback, got %+v", selection.Backend)
	}
	if selection.Backend.SplitParallel {
		t.Fatal("software fallback must encode unsplit")
	}
}

func TestSelectWithNoCandidatesNeverFails(t *testing.T) {
	detector := NewDetector("/nonexistent/ffmpeg", time.Second, "", nil)
	selection := detector.Select(context.Background(), nil)
	if selection.Backend.Name != Software {
		t.Fatalf("expected software fallback, got %+v", selection)
	}
}

func TestProbeTimesOut(t *testing.T) {
	stub := writeFFmpegStub(t, "exec sleep 5\n")
	detector := NewDetector(stub, 100*time.Millisecond, "", nil)

	started := time.Now()
	err := detector.Probe(context.Background(), "hevc_nvenc")
	if !errors.Is(err, services.ErrEncoderUnavailable) {
		t.Fatalf("expected ErrEncoderUnavailable, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 3*time.Second {
		t.Fatalf("probe did not honour timeout, took %s", elapsed)
	}
	if !services.IsRecoverable(err) {
		t.Fatal("probe failure should be recoverable")
	}
}

func TestProbeUnknownEncoder(t *testing.T) {
	detector := NewDetector("ffmpeg", time.Second, "", nil)
	if err := detector.Probe(context.Background(), "h264_rkmpp"); !errors.Is(err, services.ErrEncoderUnavailable) {
		t.Fatalf("expected ErrEncoderUnavailable, got %v", err)
	}
}

func TestForce(t *testing.T) {
	selection, err := Force("hevc_qsv")
	if err != nil {
		t.Fatalf("Force returned error: %v", err)
	}
	if !selection.Forced || selection.Backend.Name != "hevc_qsv" {
		t.Fatalf("unexpected selection: %+v", selection)
	}
	if _, err := Force("vp9"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
