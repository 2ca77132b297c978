package progress

import (
	"bytes"
	"regexp"
	"strconv"
)

var (
	frameRe = regexp.MustCompile(`frame=\s*(\d+)`)
	fpsRe   = regexp.MustCompile(`fps=\s*(\d+(?:\.\d+)?)`)
	timeRe  = regexp.MustCompile(`time=\s*(-?)(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	speedRe = regexp.MustCompile(`speed=\s*(\d+(?:\.\d+)?(?:e[-+]?\d+)?)x`)
)

// Reading is a partial update parsed from one progress line. Each Has flag
// reports whether the token was present.
type Reading struct {
	Frame    int64
	HasFrame bool
	FPS      float64
	HasFPS   bool
	// Seconds is the encoded media time.
	Seconds  float64
	HasTime  bool
	Speed    float64
	HasSpeed bool
}

// ParseLine extracts the frame=, fps=, time= and speed= tokens. ok is false
// when the line carries none of them. "N/A" values count as absent.
func ParseLine(line string) (Reading, bool) {
	var r Reading
	if m := frameRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			r.Frame, r.HasFrame = v, true
		}
	}
	if m := fpsRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.FPS, r.HasFPS = v, true
		}
	}
	if m := timeRe.FindStringSubmatch(line); m != nil {
		hours, errH := strconv.ParseFloat(m[2], 64)
		minutes, errM := strconv.ParseFloat(m[3], 64)
		seconds, errS := strconv.ParseFloat(m[4], 64)
		if errH == nil && errM == nil && errS == nil {
			total := hours*3600 + minutes*60 + seconds
			if m[1] == "-" {
				total = -total
			}
			r.Seconds, r.HasTime = total, true
		}
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.Speed, r.HasSpeed = v, true
		}
	}
	return r, r.HasFrame || r.HasFPS || r.HasTime || r.HasSpeed
}

// ScanLines is a bufio.SplitFunc that treats both '\r' and '\n' as line
// terminators. ffmpeg -stats rewrites its status line with bare carriage
// returns.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
