// Package stitch concatenates encoded segments into the final output with
// ffmpeg's concat demuxer and stream copy.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"videocompress/internal/ffmpeg"
	"videocompress/internal/logging"
	"videocompress/internal/services"
	"videocompress/internal/workspace"
)

// WriteManifest writes a concat manifest listing segments in playback order.
func WriteManifest(path string, segments []string) error {
	if len(segments) == 0 {
		return errors.New("stitch: no segments")
	}
	var b strings.Builder
	for _, segment := range segments {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(segment, "'", `'\''`))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

// Stitcher runs the concat invocation.
type Stitcher struct {
	runner *ffmpeg.Runner
	logger *slog.Logger
}

// NewStitcher returns a stitcher using runner.
func NewStitcher(runner *ffmpeg.Runner, logger *slog.Logger) *Stitcher {
	return &Stitcher{runner: runner, logger: logging.NewComponentLogger(logger, "stitch")}
}

// Stitch writes manifest, concatenates segments into output and deletes the
// segments once output exists. Segments are left in place on failure.
func (s *Stitcher) Stitch(ctx context.Context, manifest string, segments []string, output string) error {
	logger := logging.WithContext(ctx, s.logger)
	for _, segment := range segments {
		if _, err := os.Stat(segment); err != nil {
			return services.Wrap(services.ErrStitch, "stitching", "check segment", segment, err)
		}
	}
	if err := WriteManifest(manifest, segments); err != nil {
		return services.Wrap(services.ErrStitch, "stitching", "write manifest", manifest, err)
	}

	started := time.Now()
	job := ffmpeg.Job{Label: "stitch", Args: ffmpeg.ConcatArgs(manifest, output), Output: output}
	if err := s.runner.Run(ctx, job, nil); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrCancelled, "stitching", "concat", "interrupted", ctx.Err())
		}
		return services.Wrap(services.ErrStitch, "stitching", "concat",
			fmt.Sprintf("ffmpeg exited with status %d", ffmpeg.ExitCode(err)), err)
	}
	if _, err := os.Stat(output); err != nil {
		return services.Wrap(services.ErrStitch, "stitching", "concat", "concat produced no output", err)
	}

	if err := workspace.RemoveFiles(segments...); err != nil {
		logging.WarnWithContext(logger, "failed to remove stitched segments", "segment_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "workspace removal will retry"),
		)
	}
	logger.Info("segments stitched",
		logging.String("output", output),
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "stitch_complete"),
	)
	return nil
}
