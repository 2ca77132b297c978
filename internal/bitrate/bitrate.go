// Package bitrate converts a target output size into per-segment video
// bitrates.
//
// Both constants in Budget are empirical. A safety factor of 0.90 and a
// 0.5 MB minimum segment budget have held for typical HEVC bitrates but were
// never derived; keep them configurable.
package bitrate

import (
	"errors"
	"fmt"
	"math"

	"videocompress/internal/split"
)

const (
	// BytesPerMB is the MiB size used for every MB figure.
	BytesPerMB = 1024 * 1024

	DefaultSafetyFactor = 0.90
	DefaultMinSegmentMB = 0.5
	// MinKbps is the floor applied after rounding.
	MinKbps = 1
)

// Budget holds the tunables of the allocation formula.
type Budget struct {
	SafetyFactor float64
	MinSegmentMB float64
}

// DefaultBudget returns the library defaults.
func DefaultBudget() Budget {
	return Budget{SafetyFactor: DefaultSafetyFactor, MinSegmentMB: DefaultMinSegmentMB}
}

// Allocation is the pair of per-segment video bitrates in kbps.
type Allocation struct {
	SegmentA int
	SegmentB int
}

// Kbps returns the allocation as an ordered slice.
func (a Allocation) Kbps() []int {
	return []int{a.SegmentA, a.SegmentB}
}

// Validate checks 0 < SafetyFactor < 1 and MinSegmentMB > 0.
func (b Budget) Validate() error {
	if b.SafetyFactor <= 0 || b.SafetyFactor >= 1 {
		return fmt.Errorf("bitrate budget: safety factor must be in (0,1), got %v", b.SafetyFactor)
	}
	if b.MinSegmentMB <= 0 {
		return fmt.Errorf("bitrate budget: minimum segment size must be positive, got %v", b.MinSegmentMB)
	}
	return nil
}

// AudioShareMB is the space audio at audioKbps occupies over seconds.
func AudioShareMB(audioKbps int, seconds float64) float64 {
	return float64(audioKbps) * seconds * 1000 / 8 / BytesPerMB
}

// VideoShareMB is the video budget left for a segment, never below
// MinSegmentMB.
func (b Budget) VideoShareMB(targetShareMB, seconds float64, audioKbps int) float64 {
	return math.Max(b.MinSegmentMB, targetShareMB-AudioShareMB(audioKbps, seconds))
}

// SegmentKbps computes the video bitrate for one segment.
//
//	kbps = floor(video_share_MB * 8 * 1024 / seconds * SafetyFactor)
func (b Budget) SegmentKbps(targetShareMB, seconds float64, audioKbps int) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("bitrate: segment duration must be positive, got %v", seconds)
	}
	if targetShareMB <= 0 {
		return 0, errors.New("bitrate: target share must be positive")
	}
	if audioKbps < 0 {
		return 0, fmt.Errorf("bitrate: negative audio bitrate %d", audioKbps)
	}
	videoMB := b.VideoShareMB(targetShareMB, seconds, audioKbps)
	kbps := int(math.Floor(videoMB * 8 * 1024 / seconds * b.SafetyFactor))
	if kbps < MinKbps {
		kbps = MinKbps
	}
	return kbps, nil
}

// Split allocates totalMB evenly across the two segments of plan.
func (b Budget) Split(totalMB float64, plan split.Plan, audioKbps int) (Allocation, error) {
	share := totalMB / 2
	a, err := b.SegmentKbps(share, plan.SegmentA, audioKbps)
	if err != nil {
		return Allocation{}, fmt.Errorf("segment A: %w", err)
	}
	bKbps, err := b.SegmentKbps(share, plan.SegmentB, audioKbps)
	if err != nil {
		return Allocation{}, fmt.Errorf("segment B: %w", err)
	}
	return Allocation{SegmentA: a, SegmentB: bKbps}, nil
}

// Single allocates totalMB to one unsplit encode.
func (b Budget) Single(totalMB, seconds float64, audioKbps int) (int, error) {
	return b.SegmentKbps(totalMB, seconds, audioKbps)
}

// AlreadySmaller reports whether a source of sizeBytes is at or under targetMB.
func AlreadySmaller(sizeBytes int64, targetMB float64) bool {
	return float64(sizeBytes)/BytesPerMB <= targetMB
}
