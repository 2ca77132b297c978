package preflight

import (
	"context"
	"path/filepath"

	"videocompress/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results do not make doctor exit non-zero.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.History.Enabled && cfg.Paths.HistoryDB != "" {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.Paths.HistoryDB)))
	}

	results = append(results, CheckRuntime(ctx, cfg)...)
	results = append(results, CheckEncoders(ctx, cfg))
	results = append(results, CheckDiskSpace(ctx, "Work directory space", cfg.Paths.WorkDir, minFreeBytes))
	results = append(results, CheckHost(ctx)...)
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
