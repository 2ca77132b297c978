package ffmpeg

import (
	"os"
	"strconv"

	"videocompress/internal/encoder"
)

// Pass selects the rate-control pass of an encode.
type Pass int

const (
	// SinglePass encodes and writes output in one traversal.
	SinglePass Pass = iota
	// AnalysisPass is two-pass pass 1; it writes only the pass log.
	AnalysisPass
	// FinalPass is two-pass pass 2.
	FinalPass
)

func (p Pass) String() string {
	switch p {
	case AnalysisPass:
		return "pass 1"
	case FinalPass:
		return "pass 2"
	default:
		return "single pass"
	}
}

// Span limits an encode to part of the input. End <= 0 reads to the end.
type Span struct {
	Start float64
	End   float64
}

// EncodeSpec describes one encode invocation.
type EncodeSpec struct {
	Input     string
	Output    string
	Backend   encoder.Backend
	Kbps      int
	FrameRate float64
	// Span is nil for the whole source.
	Span    *Span
	Pass    Pass
	PassLog string
}

// EncodeArgs renders spec as an ffmpeg argument list (without the binary).
func EncodeArgs(spec EncodeSpec) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	args = append(args, spec.Backend.InputFlags...)
	if spec.Span != nil {
		args = append(args, "-ss", formatSeconds(spec.Span.Start))
		if spec.Span.End > 0 {
			args = append(args, "-to", formatSeconds(spec.Span.End))
		}
	}
	args = append(args, "-i", spec.Input, "-c:v", spec.Backend.Name)
	args = append(args, spec.Backend.CodecFlags...)

	rate := strconv.Itoa(spec.Kbps) + "k"
	args = append(args,
		"-b:v", rate,
		"-maxrate:v", rate,
		"-bufsize:v", strconv.Itoa(spec.Kbps*2)+"k",
	)
	if spec.Backend.PinFrameRate && spec.FrameRate > 0 {
		args = append(args, "-filter:v", "fps="+strconv.FormatFloat(spec.FrameRate, 'f', -1, 64))
	}

	switch spec.Pass {
	case AnalysisPass:
		args = append(args, "-pass", "1", "-passlogfile", spec.PassLog)
	case FinalPass:
		args = append(args, "-pass", "2", "-passlogfile", spec.PassLog)
	}

	args = append(args, "-loglevel", "error", "-stats")
	if spec.Pass == AnalysisPass {
		return append(args, "-f", "null", os.DevNull)
	}
	return append(args, "-c:a", "copy", spec.Output)
}

// ConcatArgs renders a stream-copy concatenation of the segments listed in manifest.
func ConcatArgs(manifest, output string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-y", output,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
