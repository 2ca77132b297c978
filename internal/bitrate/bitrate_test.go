package bitrate

import (
	"math"
	"math/rand/v2"
	"testing"

	"videocompress/internal/split"
)

func TestSegmentKbpsMatchesFormula(t *testing.T) {
	b := DefaultBudget()
	// 50 MB share over 300s with 128 kbps audio.
	got, err := b.SegmentKbps(50, 300, 128)
	if err != nil {
		t.Fatalf("SegmentKbps returned error: %v", err)
	}
	audio := 128.0 * 300 * 1000 / 8 / (1024 * 1024)
	want := int(math.Floor((50 - audio) * 8 * 1024 / 300 * 0.90))
	if got != want {
		t.Fatalf("SegmentKbps = %d, want %d", got, want)
	}
}

func TestSegmentKbpsUsesMinimumSegmentBudget(t *testing.T) {
	b := DefaultBudget()
	// Audio alone exceeds the share, so the video budget clamps to 0.5 MB.
	got, err := b.SegmentKbps(1, 600, 320)
	if err != nil {
		t.Fatalf("SegmentKbps returned error: %v", err)
	}
	want := int(math.Floor(0.5 * 8 * 1024 / 600 * 0.90))
	if got != want {
		t.Fatalf("SegmentKbps = %d, want %d", got, want)
	}
}

func TestSegmentKbpsFloor(t *testing.T) {
	b := Budget{SafetyFactor: 0.5, MinSegmentMB: 0.001}
	got, err := b.SegmentKbps(0.001, 1e6, 0)
	if err != nil {
		t.Fatalf("SegmentKbps returned error: %v", err)
	}
	if got != MinKbps {
		t.Fatalf("expected floor %d, got %d", MinKbps, got)
	}
}

func TestSegmentKbpsRejectsBadInput(t *testing.T) {
	b := DefaultBudget()
	for _, seconds := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := b.SegmentKbps(10, seconds, 128); err == nil {
			t.Fatalf("expected error for seconds=%v", seconds)
		}
	}
	if _, err := b.SegmentKbps(0, 10, 128); err == nil {
		t.Fatal("expected error for zero target")
	}
	if _, err := (Budget{SafetyFactor: 1, MinSegmentMB: 0.5}).SegmentKbps(10, 10, 128); err == nil {
		t.Fatal("expected error for safety factor of 1")
	}
	if _, err := (Budget{SafetyFactor: 0.9}).SegmentKbps(10, 10, 128); err == nil {
		t.Fatal("expected error for zero minimum segment")
	}
}

func TestAllocationNeverOvershootsBudget(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	b := DefaultBudget()
	for i := 0; i < 2000; i++ {
		share := 0.1 + rng.Float64()*500
		seconds := 0.05 + rng.Float64()*7200
		audio := rng.IntN(512)

		kbps, err := b.SegmentKbps(share, seconds, audio)
		if err != nil {
			t.Fatalf("SegmentKbps returned error: %v", err)
		}
		if kbps < MinKbps {
			t.Fatalf("kbps %d below floor", kbps)
		}
		videoMB := b.VideoShareMB(share, seconds, audio)
		spentMB := float64(kbps) * seconds / 8192 / b.SafetyFactor
		if kbps > MinKbps && spentMB > videoMB+1e-9 {
			t.Fatalf("overshoot: kbps=%d seconds=%v spent=%v budget=%v", kbps, seconds, spentMB, videoMB)
		}
	}
}

func TestSplitHalvesTarget(t *testing.T) {
	b := DefaultBudget()
	plan := split.NewPlan(600, 240)
	alloc, err := b.Split(100, plan, 128)
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	wantA, _ := b.SegmentKbps(50, 240, 128)
	wantB, _ := b.SegmentKbps(50, 360, 128)
	if alloc.SegmentA != wantA || alloc.SegmentB != wantB {
		t.Fatalf("unexpected allocation: %+v want %d/%d", alloc, wantA, wantB)
	}
	if alloc.SegmentA <= alloc.SegmentB {
		t.Fatalf("shorter segment should receive the higher bitrate: %+v", alloc)
	}
	total := (float64(alloc.SegmentA)*plan.SegmentA + float64(alloc.SegmentB)*plan.SegmentB) / 8192
	audio := AudioShareMB(128, 600)
	if total > (100-audio)*b.SafetyFactor+1e-6 {
		t.Fatalf("segments exceed scaled budget: %v MB", total)
	}
}

func TestSingleUsesFullTarget(t *testing.T) {
	b := DefaultBudget()
	got, err := b.Single(100, 600, 128)
	if err != nil {
		t.Fatalf("Single returned error: %v", err)
	}
	want, _ := b.SegmentKbps(100, 600, 128)
	if got != want {
		t.Fatalf("Single = %d, want %d", got, want)
	}
}

func TestAlreadySmaller(t *testing.T) {
	if !AlreadySmaller(50*BytesPerMB, 100) {
		t.Fatal("50 MB source should be under a 100 MB target")
	}
	if !AlreadySmaller(100*BytesPerMB, 100) {
		t.Fatal("equal size should count as already smaller")
	}
	if AlreadySmaller(500*BytesPerMB, 100) {
		t.Fatal("500 MB source should need compression")
	}
}
