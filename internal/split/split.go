// Package split computes where to divide a source into two independently
// encoded segments.
//
// The smart split point is the last keyframe seen before the running packet
// byte total reaches half of the stream's data, so both segments carry about
// the same amount of compressed data and the boundary stays seekable.
package split

import (
	"context"
	"fmt"
	"log/slog"

	"videocompress/internal/logging"
	"videocompress/internal/media/ffprobe"
)

// Plan is a two-segment layout of a source. SegmentA+SegmentB equals the
// source duration.
type Plan struct {
	SplitSeconds float64
	SegmentA     float64
	SegmentB     float64
	// Smart is false when the naive midpoint was used.
	Smart bool
}

// NewPlan splits duration at the given offset.
func NewPlan(duration, at float64) Plan {
	return Plan{SplitSeconds: at, SegmentA: at, SegmentB: duration - at}
}

// SmartPoint returns the keyframe timestamp closest before the byte midpoint.
// ok is false when no usable keyframe exists and the caller should use the
// midpoint.
func SmartPoint(packets []ffprobe.Packet, duration float64) (float64, bool) {
	if len(packets) == 0 || duration <= 0 {
		return 0, false
	}
	var total int64
	for _, packet := range packets {
		total += packet.Bytes()
	}
	if total == 0 {
		return 0, false
	}

	var running int64
	lastKey := 0.0
	for _, packet := range packets {
		if packet.Keyframe() {
			if ts, ok := packet.Seconds(); ok {
				lastKey = ts
			}
		}
		running += packet.Bytes()
		if running*2 >= total {
			break
		}
	}
	if lastKey <= 0 || lastKey >= duration {
		return 0, false
	}
	return lastKey, true
}

// PacketSource enumerates video packets for a path.
type PacketSource func(ctx context.Context, path string) ([]ffprobe.Packet, error)

// Planner produces split plans from packet data.
type Planner struct {
	packets PacketSource
	logger  *slog.Logger
}

// NewPlanner returns a planner reading packets through ffprobeBinary.
func NewPlanner(ffprobeBinary string, logger *slog.Logger) *Planner {
	return &Planner{
		packets: func(ctx context.Context, path string) ([]ffprobe.Packet, error) {
			return ffprobe.Packets(ctx, ffprobeBinary, path)
		},
		logger: logging.NewComponentLogger(logger, "split"),
	}
}

// NewPlannerWithSource returns a planner with a custom packet source.
func NewPlannerWithSource(source PacketSource, logger *slog.Logger) *Planner {
	return &Planner{packets: source, logger: logging.NewComponentLogger(logger, "split")}
}

// Plan never fails: enumeration errors and degenerate packet lists yield the
// midpoint. ctx cancellation is reported so the caller can stop.
func (p *Planner) Plan(ctx context.Context, path string, duration float64) (Plan, error) {
	if duration <= 0 {
		return Plan{}, fmt.Errorf("split plan: duration must be positive, got %v", duration)
	}
	logger := logging.WithContext(ctx, p.logger)

	packets, err := p.packets(ctx, path)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Plan{}, ctxErr
	}
	if err != nil {
		logging.WarnWithContext(logger, "packet enumeration failed; splitting at midpoint", "split_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "segments may differ in data volume"),
			logging.String(logging.FieldErrorHint, "check that ffprobe can read the source"),
		)
		return NewPlan(duration, duration/2), nil
	}

	at, ok := SmartPoint(packets, duration)
	if !ok {
		logger.Debug("no keyframe before byte midpoint; splitting at midpoint",
			logging.Int("packets", len(packets)),
		)
		return NewPlan(duration, duration/2), nil
	}
	plan := NewPlan(duration, at)
	plan.Smart = true
	logger.Debug("smart split computed",
		logging.Float64("split_seconds", at),
		logging.Int("packets", len(packets)),
	)
	return plan, nil
}
