package preflight

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"

	"videocompress/internal/config"
	"videocompress/internal/deps"
	"videocompress/internal/encoder"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRuntime verifies ffmpeg and ffprobe resolve and report a version.
func CheckRuntime(ctx context.Context, cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.RuntimeRequirements(cfg.Binaries.FFmpeg, cfg.Binaries.FFprobe))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Optional: status.Optional}
		if !status.Available {
			result.Detail = status.Detail
			results = append(results, result)
			continue
		}
		version, err := deps.Version(ctx, status.Command)
		if err != nil {
			result.Detail = fmt.Sprintf("%s (error: %v)", status.Command, err)
			results = append(results, result)
			continue
		}
		result.Passed = true
		result.Detail = fmt.Sprintf("%s (%s)", status.Command, version)
		results = append(results, result)
	}
	return results
}

// CheckEncoders probes the configured hardware candidates. Falling back to
// software still passes; only the detail changes.
func CheckEncoders(ctx context.Context, cfg *config.Config) Result {
	const name = "Video encoder"

	candidates := cfg.Encoder.Candidates
	if len(candidates) == 0 {
		candidates = encoder.Candidates(runtime.GOOS)
	}
	detector := encoder.NewDetector(cfg.Binaries.FFmpeg, cfg.ProbeTimeout(), cfg.Encoder.Software, nil)
	selection := detector.Select(ctx, candidates)
	if selection.Fallback {
		return Result{
			Name:     name,
			Passed:   true,
			Optional: true,
			Detail:   fmt.Sprintf("%s (software; no hardware encoder among %s)", selection.Backend.Name, strings.Join(candidates, ", ")),
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (hardware)", selection.Backend.Name)}
}
