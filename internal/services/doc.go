// Package services defines the shared error markers and context helpers used
// by every stage of a compression job.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep the taxonomy
//     (probe, pass, stitch, cancelled, ...) recoverable through errors.Is.
//   - ExitCode, which maps a job error onto the CLI exit status.
//   - Context helpers that stamp job IDs and stage names for logging.
//
// Use these helpers when wiring new pipeline steps so failures stay
// classifiable regardless of which external tool produced them.
package services
