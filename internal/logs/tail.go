package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes        = 1024 * 1024
	defaultPollInterval = 250 * time.Millisecond
)

// Filter selects log lines. An empty JobID matches every line.
type Filter struct {
	JobID string
}

// Match reports whether the line belongs to the filtered job. JSON records
// are matched on their job_id field; other lines on a substring.
func (f Filter) Match(line string) bool {
	if f.JobID == "" {
		return true
	}
	var record struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal([]byte(line), &record); err == nil {
		return strings.HasPrefix(record.JobID, f.JobID)
	}
	return strings.Contains(line, f.JobID)
}

// Result holds matched lines and the file offset reading stopped at.
type Result struct {
	Lines  []string
	Offset int64
}

// Last returns up to limit matching lines from the end of the file. A missing
// file yields an empty result.
func Last(path string, limit int, filter Filter) (Result, error) {
	var result Result
	file, err := openLog(path)
	if err != nil || file == nil {
		return result, err
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return result, fmt.Errorf("seek log file: %w", err)
		}
		result.Offset = offset
		return result, nil
	}

	ring := make([]string, 0, limit)
	start := 0
	offset, err := scanLines(file, func(line string) {
		if !filter.Match(line) {
			return
		}
		if len(ring) < limit {
			ring = append(ring, line)
			return
		}
		ring[start] = line
		start = (start + 1) % limit
	})
	if err != nil {
		return result, err
	}

	result.Lines = append(ring[start:len(ring):len(ring)], ring[:start]...)
	result.Offset = offset
	return result, nil
}

// Follow emits matching lines appended after offset until ctx is done. A file
// that shrinks below offset was rotated; reading restarts at its beginning.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, filter Filter, emit func(string)) error {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(string)) (int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	return scanLines(file, func(line string) {
		if filter.Match(line) {
			emit(line)
		}
	})
}

// scanLines feeds each complete line to fn and returns the offset just past
// the last one. A trailing partial line is left for the next read.
func scanLines(file *os.File, fn func(string)) (int64, error) {
	start, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	consumed := start
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}

func openLog(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}
