// Package encoder holds the backend strategy table and the capability
// detector that picks the best available HEVC encoder for the host.
//
// Each Backend row carries the ffmpeg flags it needs and whether it takes
// part in split-parallel or two-pass encoding, so adding a backend is a table
// change. The Detector runs a tiny synthetic encode per candidate and falls
// back to the software encoder when no hardware path works.
package encoder
