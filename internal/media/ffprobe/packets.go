package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
)

// Packet is one coded packet of the first video stream.
type Packet struct {
	PTSTime string `json:"pts_time"`
	Size    string `json:"size"`
	Flags   string `json:"flags"`
}

// Keyframe reports whether the packet is flagged as a keyframe ("K__").
func (p Packet) Keyframe() bool {
	return strings.Contains(p.Flags, "K")
}

// Seconds returns the presentation timestamp, or ok=false for "N/A" or a
// missing value.
func (p Packet) Seconds() (float64, bool) {
	value := parseFloat(p.PTSTime)
	if p.PTSTime == "" || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

// Bytes returns the packet size in bytes, or 0 when unparseable.
func (p Packet) Bytes() int64 {
	value := parseFloat(p.Size)
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	return int64(value)
}

// Packets enumerates the packets of the first video stream. Output can run to
// hundreds of thousands of entries so the "packets" array is decoded
// incrementally from the ffprobe stdout pipe.
func Packets(ctx context.Context, binary string, path string) ([]Packet, error) {
	binary = defaultBinary(binary)
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ffprobe packets: empty path")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "packet=pts_time,size,flags",
		"-of", "json",
		"--", path,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffprobe packets: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffprobe packets: start: %w", err)
	}

	packets, decodeErr := decodePackets(stdout)
	if decodeErr != nil {
		cancel()
	}
	// Drain so ffprobe is not blocked on a full pipe before Wait.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if decodeErr != nil {
		return nil, fmt.Errorf("ffprobe packets: decode: %w", decodeErr)
	}
	if waitErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffprobe packets: %w: %s", waitErr, msg)
		}
		return nil, fmt.Errorf("ffprobe packets: %w", waitErr)
	}
	return packets, nil
}

func decodePackets(r io.Reader) ([]Packet, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var packets []Packet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		if key != "packets" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		if err := expectDelim(dec, '['); err != nil {
			return nil, err
		}
		for dec.More() {
			var packet Packet
			if err := dec.Decode(&packet); err != nil {
				return nil, err
			}
			packets = append(packets, packet)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
	}
	return packets, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("unexpected token %v, want %q", tok, want)
	}
	return nil
}
