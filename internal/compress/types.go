package compress

import (
	"errors"
	"time"

	"videocompress/internal/progress"
	"videocompress/internal/services"
	"videocompress/internal/split"
)

// Stage is a state of the job state machine.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageProbing         Stage = "probing"
	StageCapabilityCheck Stage = "capability_check"
	StageSplitPlanning   Stage = "split_planning"
	StageEncodingPass1   Stage = "encoding_pass1"
	StageEncoding        Stage = "encoding"
	StageStitching       Stage = "stitching"
	StageCleanup         Stage = "cleanup"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
	StageCancelled       Stage = "cancelled"
)

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageCancelled
}

// Mode is the encode layout chosen from the backend capabilities.
type Mode string

const (
	ModeTwoPassSplit    Mode = "two_pass_split"
	ModeSinglePassSplit Mode = "single_pass_split"
	ModeSinglePass      Mode = "single_pass"
)

// Split reports whether the mode encodes two segments.
func (m Mode) Split() bool {
	return m == ModeTwoPassSplit || m == ModeSinglePassSplit
}

// Outcome classifies how a job ended.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeAlreadySmaller Outcome = "already_smaller"
	OutcomeInvalid        Outcome = "invalid_request"
	OutcomeProbeFailed    Outcome = "probe_failed"
	OutcomePassFailed     Outcome = "pass_failed"
	OutcomeStitchFailed   Outcome = "stitch_failed"
	OutcomeOutputMissing  Outcome = "output_missing"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeFailed         Outcome = "failed"
)

// OutcomeFor maps a Compress error to its Outcome.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, services.ErrCancelled):
		return OutcomeCancelled
	case errors.Is(err, services.ErrAlreadySmaller):
		return OutcomeAlreadySmaller
	case errors.Is(err, services.ErrValidation):
		return OutcomeInvalid
	case errors.Is(err, services.ErrProbe):
		return OutcomeProbeFailed
	case errors.Is(err, services.ErrPass):
		return OutcomePassFailed
	case errors.Is(err, services.ErrStitch):
		return OutcomeStitchFailed
	case errors.Is(err, services.ErrOutputMissing):
		return OutcomeOutputMissing
	default:
		return OutcomeFailed
	}
}

// Request is one compression job. Zero TargetMB uses the configured default
// and an empty Output derives <stem>_<MB>MB<ext> next to the input.
type Request struct {
	Input    string
	Output   string
	TargetMB float64
	// Encoder forces a backend by name and skips capability detection.
	Encoder string
}

// Result describes a finished job, successful or not.
type Result struct {
	JobID       string
	Outcome     Outcome
	Message     string
	Input       string
	Output      string
	Encoder     string
	Mode        Mode
	TargetMB    float64
	InputBytes  int64
	OutputBytes int64
	// Split is nil for unsplit encodes.
	Split *split.Plan
	// Bitrates holds the video kbps per encoded segment.
	Bitrates []int
	Elapsed  time.Duration
}

// Success reports whether the job produced its output.
func (r Result) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// ReductionPercent is the size saved relative to the input, or 0 when either
// size is unknown.
func (r Result) ReductionPercent() float64 {
	if r.InputBytes <= 0 || r.OutputBytes <= 0 {
		return 0
	}
	return (1 - float64(r.OutputBytes)/float64(r.InputBytes)) * 100
}

// Observer receives stage transitions and periodic progress snapshots.
// Calls come from the goroutine running Compress.
type Observer interface {
	StageChanged(stage Stage)
	Progress(phase string, stats progress.Stats)
}

type nopObserver struct{}

func (nopObserver) StageChanged(Stage)              {}
func (nopObserver) Progress(string, progress.Stats) {}
