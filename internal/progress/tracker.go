package progress

import (
	"math"
	"sync"
	"time"
)

// Segment identifies one of the two concurrently encoded halves.
type Segment int

const (
	SegmentA Segment = iota
	SegmentB
)

func (s Segment) String() string {
	if s == SegmentB {
		return "B"
	}
	return "A"
}

// minSpeed stands in for an unknown encode speed so ETA stays finite.
const minSpeed = 0.001

type segmentState struct {
	duration float64
	elapsed  float64
	fps      float64
	speed    float64
}

// Tracker is safe for concurrent use by multiple monitors and a reader.
type Tracker struct {
	mu       sync.Mutex
	segments [2]segmentState
}

// Stats is a consistent snapshot of a Tracker.
type Stats struct {
	// Percent is in [0,100].
	Percent float64
	// FPS is the combined frame rate of both segments.
	FPS float64
	// ETA is the slower segment's remaining time, in whole seconds.
	ETA time.Duration
}

// NewTracker creates a tracker for segments of the given durations. Use
// durationB = 0 for an unsplit encode.
func NewTracker(durationA, durationB float64) *Tracker {
	t := &Tracker{}
	t.segments[SegmentA] = segmentState{duration: math.Max(0, durationA), speed: minSpeed}
	t.segments[SegmentB] = segmentState{duration: math.Max(0, durationB), speed: minSpeed}
	return t
}

// Update records elapsed media time for seg. fps and speed only replace the
// previous values when positive.
func (t *Tracker) Update(seg Segment, elapsed, fps, speed float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.segments[seg&1]
	s.elapsed = elapsed
	if fps > 0 {
		s.fps = fps
	}
	if speed > 0 {
		s.speed = speed
	}
}

// Apply merges a parsed reading. Absent tokens leave fields unchanged.
func (t *Tracker) Apply(seg Segment, r Reading) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.segments[seg&1]
	if r.HasTime {
		s.elapsed = r.Seconds
	}
	if r.HasFPS && r.FPS > 0 {
		s.fps = r.FPS
	}
	if r.HasSpeed && r.Speed > 0 {
		s.speed = r.Speed
	}
}

// Stats returns a snapshot.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	segments := t.segments
	t.mu.Unlock()

	var done, total, fps, eta float64
	for _, s := range segments {
		done += clamp(s.elapsed, 0, s.duration)
		total += s.duration
		fps += s.fps
		remaining := math.Max(0, (s.duration-s.elapsed)/s.speed)
		eta = math.Max(eta, remaining)
	}

	stats := Stats{FPS: fps, ETA: etaDuration(eta)}
	if total > 0 {
		stats.Percent = math.Min(100, done/total*100)
	}
	return stats
}

// maxETASeconds is the largest whole-second count a time.Duration holds.
const maxETASeconds = math.MaxInt64 / int64(time.Second)

func etaDuration(seconds float64) time.Duration {
	rounded := math.Round(seconds)
	if rounded >= float64(maxETASeconds) {
		return time.Duration(maxETASeconds) * time.Second
	}
	return time.Duration(rounded) * time.Second
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
