// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//   - Packet: one coded video packet (timestamp, byte size, keyframe flag)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Packets: enumerates the first video stream's packets, decoding the
//     JSON array one element at a time
//
// ParseFrameRate converts ffprobe's rational "num/den" strings.
package ffprobe
