// Package progress aggregates live encode progress from one or two ffmpeg
// processes.
//
// ParseLine is the only place that knows the ffmpeg -stats text format. A
// Monitor goroutine per process feeds parsed readings into a shared,
// mutex-guarded Tracker; display code polls Tracker.Stats snapshots.
package progress
