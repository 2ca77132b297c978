package compress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"videocompress/internal/ffmpeg"
	"videocompress/internal/logging"
	"videocompress/internal/progress"
	"videocompress/internal/services"
)

// runPhase starts jobs concurrently against one tracker and waits for all of
// them. The first non-zero exit stops the siblings. Cancelling ctx stops
// every process. runPhase returns only after every process and its monitor
// have finished.
func (j *job) runPhase(ctx context.Context, phase string, jobs []ffmpeg.Job, tracker *progress.Tracker) error {
	c := j.c
	stage := string(j.stage)
	logger := logging.WithContext(ctx, c.logger)

	procs := make([]*ffmpeg.Process, 0, len(jobs))
	for _, spec := range jobs {
		procCtx := ctx
		if len(jobs) > 1 {
			procCtx = services.WithSegment(ctx, spec.Segment.String())
		}
		p, err := c.runner.Start(procCtx, spec, tracker)
		if err != nil {
			stopAll(procs)
			waitAll(procs)
			return services.Wrap(services.ErrPass, stage, spec.Label, "start ffmpeg", err)
		}
		procs = append(procs, p)
	}
	logger.Info("encode phase started",
		logging.String("phase", phase),
		logging.Int("processes", len(procs)),
		logging.String(logging.FieldEventType, "phase_start"),
	)
	started := time.Now()

	exited := make(chan *ffmpeg.Process, len(procs))
	for _, p := range procs {
		go func() {
			<-p.Done()
			exited <- p
		}()
	}

	ticker := time.NewTicker(c.settings.ProgressInterval)
	defer ticker.Stop()

	cancelled := ctx.Done()
	var failed *ffmpeg.Process
	var failErr error
	for remaining := len(procs); remaining > 0; {
		select {
		case p := <-exited:
			remaining--
			err := p.Wait()
			if err == nil || failed != nil || p.Stopped() || ctx.Err() != nil {
				continue
			}
			failed, failErr = p, err
			logging.WarnWithContext(logger, "encoder process failed; stopping siblings", "pass_failed",
				logging.String("job", p.Job().Label),
				logging.Int("exit_code", ffmpeg.ExitCode(err)),
				logging.Error(err),
				logging.String("ffmpeg_stderr", strings.Join(p.Diagnostics(), "\n")),
				logging.String(logging.FieldImpact, "job aborted"),
			)
			stopAll(procs)
		case <-cancelled:
			cancelled = nil
			logger.Info("interrupt received; stopping encoder processes", logging.Int("processes", remaining))
			stopAll(procs)
		case <-ticker.C:
			c.observer.Progress(phase, tracker.Stats())
		}
	}

	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, stage, phase, "interrupted; encoder processes stopped", err)
	}
	if failed != nil {
		return services.Wrap(services.ErrPass, stage, failed.Job().Label,
			fmt.Sprintf("ffmpeg exited with status %d", ffmpeg.ExitCode(failErr)), failErr)
	}

	c.observer.Progress(phase, tracker.Stats())
	logger.Info("encode phase complete",
		logging.String("phase", phase),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "phase_complete"),
	)
	return nil
}

func stopAll(procs []*ffmpeg.Process) {
	for _, p := range procs {
		p.Stop()
	}
}

func waitAll(procs []*ffmpeg.Process) {
	for _, p := range procs {
		_ = p.Wait()
	}
}
