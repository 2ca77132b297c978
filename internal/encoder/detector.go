package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"videocompress/internal/logging"
	"videocompress/internal/services"
)

// DefaultProbeTimeout bounds a single synthetic encode.
const DefaultProbeTimeout = 10 * time.Second

// ProbeResult records the outcome of one candidate probe.
type ProbeResult struct {
	Name      string
	Available bool
	Reason    string
	Elapsed   time.Duration
}

// Selection is the detector decision.
type Selection struct {
	Backend Backend
	Probes  []ProbeResult
	// Fallback is set when no hardware candidate succeeded.
	Fallback bool
	// Forced is set when the backend was chosen by name without probing.
	Forced bool
}

// Detector probes candidate encoders against the local ffmpeg build.
type Detector struct {
	ffmpeg   string
	timeout  time.Duration
	fallback Backend
	logger   *slog.Logger
}

// NewDetector builds a detector. A software name that is unknown or names a
// hardware backend falls back to libx265.
func NewDetector(ffmpegBinary string, timeout time.Duration, software string, logger *slog.Logger) *Detector {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	fallback, ok := Lookup(software)
	if !ok || !fallback.Software {
		fallback = MustLookup(Software)
	}
	return &Detector{
		ffmpeg:   ffmpegBinary,
		timeout:  timeout,
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "encoder"),
	}
}

// ProbeArgs returns the synthetic encode arguments for backend.
func ProbeArgs(backend Backend) []string {
	args := []string{"-hide_banner", "-nostdin", "-v", "error"}
	args = append(args, backend.ProbeInputFlags...)
	args = append(args,
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:r=1:d=0.1",
		"-vframes", "1",
		"-c:v", backend.Name,
	)
	args = append(args, backend.ProbeFlags...)
	return append(args, "-f", "null", "-")
}

// Probe runs a 0.1s synthetic encode with name. Any failure, including the
// timeout, is reported as services.ErrEncoderUnavailable.
func (d *Detector) Probe(ctx context.Context, name string) error {
	backend, ok := Lookup(name)
	if !ok {
		return services.Wrap(services.ErrEncoderUnavailable, "capability_check", name, "unknown encoder", nil)
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, d.ffmpeg, ProbeArgs(backend)...)
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrEncoderUnavailable, "capability_check", name, fmt.Sprintf("probe timed out after %s", d.timeout), err)
	}
	return services.Wrap(services.ErrEncoderUnavailable, "capability_check", name, lastLine(stderr.String()), err)
}

// Select probes candidates in order and returns the first available backend,
// or the software fallback when none succeed. Software entries in candidates
// are skipped since the fallback is always reachable.
func (d *Detector) Select(ctx context.Context, candidates []string) Selection {
	logger := logging.WithContext(ctx, d.logger)
	selection := Selection{}
	for _, name := range candidates {
		if ctx.Err() != nil {
			break
		}
		if backend, ok := Lookup(name); ok && backend.Software {
			continue
		}
		started := time.Now()
		err := d.Probe(ctx, name)
		result := ProbeResult{Name: name, Available: err == nil, Elapsed: time.Since(started)}
		if err != nil {
			result.Reason = err.Error()
		}
		selection.Probes = append(selection.Probes, result)
		logger.Debug("encoder probe",
			logging.String(logging.FieldEncoder, name),
			logging.Bool("available", result.Available),
			logging.Duration("elapsed", result.Elapsed),
			logging.String("reason", result.Reason),
		)
		if err == nil {
			selection.Backend = MustLookup(name)
			logger.Info("hardware encoder selected", logging.String(logging.FieldEncoder, name))
			return selection
		}
	}
	selection.Backend = d.fallback
	selection.Fallback = true
	logger.Info("no hardware encoder available; using software encoder",
		logging.String(logging.FieldEncoder, d.fallback.Name),
		logging.Int("candidates", len(selection.Probes)),
	)
	return selection
}

// Force returns the named backend without probing.
func Force(name string) (Selection, error) {
	backend, ok := Lookup(name)
	if !ok {
		return Selection{}, services.Wrap(services.ErrConfiguration, "capability_check", "force encoder",
			fmt.Sprintf("unknown encoder %q (known: %s)", name, strings.Join(Names(), ", ")), nil)
	}
	return Selection{Backend: backend, Forced: true, Fallback: backend.Software}, nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "probe failed"
}
