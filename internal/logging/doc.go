// Package logging assembles structured slog loggers and formatting helpers used
// across videocompress.
//
// It owns the configurable console/JSON handlers, tees records into a JSON log
// file under the configured log directory, and exposes context-aware helpers
// so pipeline code can tag log lines with job IDs, stages, and segments. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
