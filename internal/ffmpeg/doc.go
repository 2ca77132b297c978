// Package ffmpeg builds ffmpeg command lines from the encoder strategy table
// and supervises running ffmpeg processes.
//
// A Process owns its command, a per-process cancel function and exactly one
// progress monitor goroutine. Done closes only after the process has exited
// and the monitor has drained stderr, so callers never observe a half-torn-down
// job.
package ffmpeg
