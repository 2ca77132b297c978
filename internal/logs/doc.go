// Package logs reads the JSON job log written by the logging package. It
// returns the last lines of the file, optionally narrowed to one job, and
// follows the file as compressions append to it.
package logs
