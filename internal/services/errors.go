package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProbe marks unreadable source metadata.
	ErrProbe = errors.New("probe failure")
	// ErrEncoderUnavailable is informational: the detector moves to the next candidate.
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	// ErrPass marks an encode process that exited non-zero.
	ErrPass = errors.New("pass failure")
	// ErrStitch marks a failed concat invocation.
	ErrStitch = errors.New("stitch failure")
	// ErrAlreadySmaller is a skip outcome, not a failure.
	ErrAlreadySmaller = errors.New("already smaller than target")
	// ErrOutputMissing marks a pipeline that reported success without producing output.
	ErrOutputMissing = errors.New("output missing")
	// ErrCancelled marks a user-initiated interrupt.
	ErrCancelled = errors.New("cancelled")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a job error to the process exit status. A source that is
// already below the target is an early exit, not a failure.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, ErrAlreadySmaller):
		return 0
	default:
		return 1
	}
}

// IsRecoverable reports whether err only affects routing decisions (the
// capability detector tries the next candidate) rather than the job.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrEncoderUnavailable)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
