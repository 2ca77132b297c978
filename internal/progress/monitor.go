package progress

import (
	"bufio"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// Monitor reads r until EOF, applying progress lines for seg to tracker.
// Other non-empty lines are copied to diag (when non-nil) so error output
// can be reported after the process exits. r is always drained, even after
// a scan error, so the writer never blocks.
func Monitor(r io.Reader, tracker *Tracker, seg Segment, diag io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	scanner.Split(ScanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if reading, ok := ParseLine(line); ok {
			if tracker != nil {
				tracker.Apply(seg, reading)
			}
			continue
		}
		if diag != nil {
			_, _ = io.WriteString(diag, line+"\n")
		}
	}
	err := scanner.Err()
	_, _ = io.Copy(io.Discard, r)
	return err
}
