package compress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"videocompress/internal/bitrate"
	"videocompress/internal/encoder"
	"videocompress/internal/ffmpeg"
	"videocompress/internal/logging"
	"videocompress/internal/media/probe"
	"videocompress/internal/progress"
	"videocompress/internal/services"
	"videocompress/internal/split"
	"videocompress/internal/stitch"
	"videocompress/internal/workspace"
)

// Option configures a Compressor.
type Option func(*Compressor)

// WithObserver registers o for stage and progress callbacks.
func WithObserver(o Observer) Option {
	return func(c *Compressor) {
		if o != nil {
			c.observer = o
		}
	}
}

// Compressor runs compression jobs. It holds no per-job state, so one
// Compressor may run several jobs concurrently.
type Compressor struct {
	settings Settings
	prober   *probe.Prober
	detector *encoder.Detector
	planner  *split.Planner
	runner   *ffmpeg.Runner
	stitcher *stitch.Stitcher
	observer Observer
	logger   *slog.Logger
}

// New builds a Compressor from settings.
func New(settings Settings, logger *slog.Logger, opts ...Option) *Compressor {
	settings = settings.withDefaults()
	if settings.WorkDir == "" {
		settings.WorkDir = filepath.Join(os.TempDir(), "videocompress")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := ffmpeg.NewRunner(settings.FFmpeg, logger)
	c := &Compressor{
		settings: settings,
		prober:   probe.NewProber(settings.FFprobe, settings.FallbackAudioKbps, logger),
		detector: encoder.NewDetector(settings.FFmpeg, settings.ProbeTimeout, settings.Software, logger),
		planner:  split.NewPlanner(settings.FFprobe, logger),
		runner:   runner,
		stitcher: stitch.NewStitcher(runner, logger),
		observer: nopObserver{},
		logger:   logging.NewComponentLogger(logger, "compress"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Settings returns the effective settings after defaults.
func (c *Compressor) Settings() Settings {
	return c.settings
}

// ModeFor picks the encode layout a backend supports.
func ModeFor(b encoder.Backend) Mode {
	switch {
	case b.Software || !b.SplitParallel:
		return ModeSinglePass
	case b.TwoPass:
		return ModeTwoPassSplit
	default:
		return ModeSinglePassSplit
	}
}

// DefaultOutputPath derives <stem>_<MB>MB<ext> next to input.
func DefaultOutputPath(input string, targetMB float64) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	return stem + "_" + strconv.FormatFloat(targetMB, 'f', -1, 64) + "MB" + ext
}

// Compress runs req to completion. The returned Result is always populated;
// err is nil only for OutcomeSuccess. The workspace is removed before
// Compress returns, as is the output file when the job did not succeed.
func (c *Compressor) Compress(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	jobID := uuid.NewString()
	ctx = services.WithJobID(ctx, jobID)

	j := &job{
		c:     c,
		stage: StageIdle,
		result: Result{
			JobID:    jobID,
			Input:    req.Input,
			Output:   req.Output,
			TargetMB: req.TargetMB,
		},
	}
	c.observer.StageChanged(StageIdle)

	err := j.run(ctx, req)
	if err != nil && ctx.Err() != nil && !errors.Is(err, services.ErrCancelled) {
		err = services.Wrap(services.ErrCancelled, string(j.stage), "", "interrupted", err)
	}

	ctx = j.enter(ctx, StageCleanup)
	j.cleanup(ctx, err == nil)

	result := j.result
	result.Elapsed = time.Since(started)
	result.Outcome = OutcomeFor(err)
	logger := logging.WithContext(ctx, c.logger)

	switch result.Outcome {
	case OutcomeSuccess:
		result.Message = fmt.Sprintf("compressed to %.2f MB (%.1f%% smaller) in %s",
			float64(result.OutputBytes)/bitrate.BytesPerMB, result.ReductionPercent(), result.Elapsed.Round(time.Second))
		j.enter(ctx, StageDone)
		logger.Info("compression complete",
			logging.String("output", result.Output),
			logging.Int64("output_bytes", result.OutputBytes),
			logging.Float64("reduction_percent", math.Round(result.ReductionPercent()*10)/10),
			logging.Duration("elapsed", result.Elapsed.Round(time.Millisecond)),
			logging.String(logging.FieldEncoder, result.Encoder),
			logging.String(logging.FieldEventType, "job_complete"),
		)
	case OutcomeAlreadySmaller:
		if result.Message == "" {
			result.Message = err.Error()
		}
		j.enter(ctx, StageDone)
		logger.Info("source already under target; nothing to do",
			logging.Int64("input_bytes", result.InputBytes),
			logging.Float64("target_mb", result.TargetMB),
			logging.String(logging.FieldEventType, "job_skipped"),
		)
	case OutcomeCancelled:
		result.Message = "cancelled"
		j.enter(ctx, StageCancelled)
		logging.WarnWithContext(logger, "compression cancelled", "job_cancelled",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no output written"),
		)
	default:
		result.Message = err.Error()
		j.enter(ctx, StageFailed)
		logging.ErrorWithContext(logger, "compression failed", "job_failed",
			logging.Error(err),
			logging.String("outcome", string(result.Outcome)),
			logging.String(logging.FieldErrorHint, hintFor(result.Outcome)),
		)
	}
	return result, err
}

func hintFor(outcome Outcome) string {
	switch outcome {
	case OutcomeInvalid:
		return "check the input and output paths and the target size"
	case OutcomeProbeFailed:
		return "check that ffprobe can read the source"
	case OutcomePassFailed:
		return "run with --encoder libx265 to rule out the hardware encoder"
	case OutcomeStitchFailed:
		return "segments may use incompatible parameters; retry with a single pass encoder"
	default:
		return "see the log file for ffmpeg diagnostics"
	}
}

// job carries the state of one Compress call.
type job struct {
	c      *Compressor
	stage  Stage
	result Result
	ws     *workspace.Workspace
	// outputWritten is set once ffmpeg may have created the output file.
	outputWritten bool
}

func (j *job) enter(ctx context.Context, stage Stage) context.Context {
	j.stage = stage
	ctx = services.WithStage(ctx, string(stage))
	j.c.observer.StageChanged(stage)
	eventType := "stage_start"
	if stage.Terminal() {
		eventType = "job_end"
	}
	logging.WithContext(ctx, j.c.logger).Debug("stage entered",
		logging.String(logging.FieldEventType, eventType),
	)
	return ctx
}

func (j *job) run(ctx context.Context, req Request) error {
	c := j.c
	req, inputBytes, err := c.normalizeRequest(req)
	if err != nil {
		return err
	}
	j.result.Input = req.Input
	j.result.Output = req.Output
	j.result.TargetMB = req.TargetMB
	j.result.InputBytes = inputBytes

	if bitrate.AlreadySmaller(inputBytes, req.TargetMB) {
		j.result.Message = fmt.Sprintf("%s is %.2f MB, already at or under the %s MB target",
			filepath.Base(req.Input), float64(inputBytes)/bitrate.BytesPerMB, strconv.FormatFloat(req.TargetMB, 'f', -1, 64))
		return services.Wrap(services.ErrAlreadySmaller, string(StageIdle), "size check", j.result.Message, nil)
	}

	ctx = j.enter(ctx, StageProbing)
	media, err := c.prober.Probe(ctx, req.Input)
	if err != nil {
		return err
	}

	ctx = j.enter(ctx, StageCapabilityCheck)
	selection, err := c.selectEncoder(ctx, req.Encoder)
	if err != nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return services.Wrap(services.ErrCancelled, string(StageCapabilityCheck), "select encoder", "interrupted", ctxErr)
	}
	backend := selection.Backend
	mode := ModeFor(backend)
	j.result.Encoder = backend.Name
	j.result.Mode = mode

	ws, err := c.openWorkspace(ctx, j.result.JobID)
	if err != nil {
		return err
	}
	j.ws = ws

	logging.WithContext(ctx, c.logger).Info("encode plan",
		logging.String(logging.FieldEncoder, backend.Name),
		logging.String("mode", string(mode)),
		logging.Bool("forced", selection.Forced),
		logging.Bool("software_fallback", selection.Fallback && !selection.Forced),
		logging.Float64("duration_seconds", media.DurationSeconds),
		logging.Int("audio_kbps", media.AudioBitrateKbps),
		logging.String("workspace", ws.Path()),
	)

	if !mode.Split() {
		return j.runSingle(ctx, req, media, backend)
	}
	return j.runSplit(ctx, req, media, backend, mode)
}

func (c *Compressor) normalizeRequest(req Request) (Request, int64, error) {
	const stage = string(StageIdle)

	input := strings.TrimSpace(req.Input)
	if input == "" {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request", "input path is required", nil)
	}
	input, err := filepath.Abs(input)
	if err != nil {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request", "resolve input path", err)
	}
	inputInfo, err := os.Stat(input)
	if err != nil {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request", "input file not found", err)
	}
	if inputInfo.IsDir() {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request",
			fmt.Sprintf("%s is a directory", input), nil)
	}

	target := req.TargetMB
	if target == 0 {
		target = c.settings.DefaultTargetMB
	}
	if target < 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request",
			fmt.Sprintf("target size must be positive, got %v", req.TargetMB), nil)
	}

	output := strings.TrimSpace(req.Output)
	if output == "" {
		output = DefaultOutputPath(input, target)
	}
	output, err = filepath.Abs(output)
	if err != nil {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request", "resolve output path", err)
	}
	if output == input {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request", "output path must differ from input", nil)
	}
	if outInfo, err := os.Stat(output); err == nil && os.SameFile(inputInfo, outInfo) {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request", "output path must differ from input", nil)
	}
	if dirInfo, err := os.Stat(filepath.Dir(output)); err != nil || !dirInfo.IsDir() {
		return req, 0, services.Wrap(services.ErrValidation, stage, "validate request",
			fmt.Sprintf("output directory %s does not exist", filepath.Dir(output)), err)
	}

	return Request{
		Input:    input,
		Output:   output,
		TargetMB: target,
		Encoder:  strings.TrimSpace(req.Encoder),
	}, inputInfo.Size(), nil
}

func (c *Compressor) selectEncoder(ctx context.Context, forced string) (encoder.Selection, error) {
	if forced != "" {
		return encoder.Force(forced)
	}
	return c.detector.Select(ctx, c.settings.Candidates), nil
}

func (c *Compressor) openWorkspace(ctx context.Context, jobID string) (*workspace.Workspace, error) {
	if c.settings.StaleWorkspaceAge > 0 {
		workspace.CleanStale(ctx, c.settings.WorkDir, c.settings.StaleWorkspaceAge, logging.WithContext(ctx, c.logger))
	}
	ws, err := workspace.Create(c.settings.WorkDir, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, string(StageCapabilityCheck), "create workspace",
			"check paths.work_dir", err)
	}
	return ws, nil
}

func (j *job) runSingle(ctx context.Context, req Request, media probe.MediaInfo, backend encoder.Backend) error {
	kbps, err := j.c.settings.Budget.Single(req.TargetMB, media.DurationSeconds, media.AudioBitrateKbps)
	if err != nil {
		return services.Wrap(services.ErrValidation, string(j.stage), "allocate bitrate", "", err)
	}
	j.result.Bitrates = []int{kbps}

	ctx = j.enter(ctx, StageEncoding)
	spec := ffmpeg.EncodeSpec{
		Input:     req.Input,
		Output:    req.Output,
		Backend:   backend,
		Kbps:      kbps,
		FrameRate: media.FrameRate,
		Pass:      ffmpeg.SinglePass,
	}
	encode := ffmpeg.Job{
		Label:   ffmpeg.SinglePass.String(),
		Segment: progress.SegmentA,
		Args:    ffmpeg.EncodeArgs(spec),
		Output:  req.Output,
	}
	j.outputWritten = true
	tracker := progress.NewTracker(media.DurationSeconds, 0)
	if err := j.runPhase(ctx, ffmpeg.SinglePass.String(), []ffmpeg.Job{encode}, tracker); err != nil {
		return err
	}
	return j.verifyOutput(req.Output)
}

func (j *job) runSplit(ctx context.Context, req Request, media probe.MediaInfo, backend encoder.Backend, mode Mode) error {
	c := j.c
	ctx = j.enter(ctx, StageSplitPlanning)
	plan, err := c.planner.Plan(ctx, req.Input, media.DurationSeconds)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Wrap(services.ErrCancelled, string(StageSplitPlanning), "plan split", "interrupted", ctxErr)
		}
		return services.Wrap(services.ErrProbe, string(StageSplitPlanning), "plan split", "", err)
	}
	j.result.Split = &plan

	alloc, err := c.settings.Budget.Split(req.TargetMB, plan, media.AudioBitrateKbps)
	if err != nil {
		return services.Wrap(services.ErrValidation, string(StageSplitPlanning), "allocate bitrate", "", err)
	}
	j.result.Bitrates = alloc.Kbps()
	logging.WithContext(ctx, c.logger).Info("split planned",
		logging.Float64("split_seconds", plan.SplitSeconds),
		logging.Bool("smart", plan.Smart),
		logging.Int("kbps_a", alloc.SegmentA),
		logging.Int("kbps_b", alloc.SegmentB),
	)

	ext := filepath.Ext(req.Output)
	segments := []string{j.ws.SegmentPath("a", ext), j.ws.SegmentPath("b", ext)}
	spans := []*ffmpeg.Span{{Start: 0, End: plan.SplitSeconds}, {Start: plan.SplitSeconds}}
	kbps := alloc.Kbps()
	jobsFor := func(pass ffmpeg.Pass) []ffmpeg.Job {
		jobs := make([]ffmpeg.Job, 0, 2)
		for i, seg := range []progress.Segment{progress.SegmentA, progress.SegmentB} {
			spec := ffmpeg.EncodeSpec{
				Input:     req.Input,
				Output:    segments[i],
				Backend:   backend,
				Kbps:      kbps[i],
				FrameRate: media.FrameRate,
				Span:      spans[i],
				Pass:      pass,
				PassLog:   j.ws.PassLogPrefix(seg.String()),
			}
			jobs = append(jobs, ffmpeg.Job{
				Label:   fmt.Sprintf("%s segment %s", pass, seg),
				Segment: seg,
				Args:    ffmpeg.EncodeArgs(spec),
				Output:  segments[i],
			})
		}
		return jobs
	}

	final := ffmpeg.SinglePass
	if mode == ModeTwoPassSplit {
		passCtx := j.enter(ctx, StageEncodingPass1)
		tracker := progress.NewTracker(plan.SegmentA, plan.SegmentB)
		if err := j.runPhase(passCtx, ffmpeg.AnalysisPass.String(), jobsFor(ffmpeg.AnalysisPass), tracker); err != nil {
			return err
		}
		final = ffmpeg.FinalPass
	}

	encodeCtx := j.enter(ctx, StageEncoding)
	tracker := progress.NewTracker(plan.SegmentA, plan.SegmentB)
	if err := j.runPhase(encodeCtx, final.String(), jobsFor(final), tracker); err != nil {
		return err
	}

	stitchCtx := j.enter(ctx, StageStitching)
	j.outputWritten = true
	if err := c.stitcher.Stitch(stitchCtx, j.ws.ManifestPath(), segments, req.Output); err != nil {
		return err
	}
	return j.verifyOutput(req.Output)
}

func (j *job) verifyOutput(output string) error {
	info, err := os.Stat(output)
	if err != nil {
		return services.Wrap(services.ErrOutputMissing, string(j.stage), "verify output", output, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrOutputMissing, string(j.stage), "verify output",
			fmt.Sprintf("%s is a directory", output), nil)
	}
	j.result.OutputBytes = info.Size()
	return nil
}

func (j *job) cleanup(ctx context.Context, success bool) {
	logger := logging.WithContext(ctx, j.c.logger)
	if err := j.ws.Cleanup(); err != nil {
		logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the job directory under paths.work_dir manually"),
		)
	}
	if success || !j.outputWritten {
		return
	}
	if err := workspace.RemoveFiles(j.result.Output); err != nil {
		logging.WarnWithContext(logger, "failed to remove partial output", "partial_output_cleanup_failed",
			logging.String("output", j.result.Output),
			logging.Error(err),
		)
		return
	}
	logger.Debug("partial output removed", logging.String("output", j.result.Output))
}
