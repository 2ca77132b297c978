package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"videocompress/internal/logging"
	"videocompress/internal/progress"
)

// DefaultWaitDelay bounds how long Wait blocks on stderr after the process
// exits or is killed.
const DefaultWaitDelay = 2 * time.Second

const tailLines = 20

// Job is one ffmpeg invocation and its output path.
type Job struct {
	Label   string
	Segment progress.Segment
	Args    []string
	Output  string
}

// Runner starts supervised ffmpeg processes.
type Runner struct {
	binary    string
	waitDelay time.Duration
	logger    *slog.Logger
}

// NewRunner returns a runner for binary.
func NewRunner(binary string, logger *slog.Logger) *Runner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary, waitDelay: DefaultWaitDelay, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Process is a running Job.
type Process struct {
	job     Job
	cancel  context.CancelFunc
	done    chan struct{}
	tail    *tailBuffer
	stopped bool
	mu      sync.Mutex
	err     error
}

// Start launches job. Progress lines update tracker (which may be nil) for
// job.Segment; other stderr lines are kept for error reporting.
func (r *Runner) Start(ctx context.Context, job Job, tracker *progress.Tracker) (*Process, error) {
	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, r.binary, job.Args...)
	cmd.WaitDelay = r.waitDelay

	pr, pw := io.Pipe()
	cmd.Stderr = pw

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("starting ffmpeg",
		logging.String("job", job.Label),
		logging.String("args", strings.Join(job.Args, " ")),
	)
	if err := cmd.Start(); err != nil {
		cancel()
		_ = pw.Close()
		_ = pr.Close()
		return nil, fmt.Errorf("%s: start %s: %w", job.Label, r.binary, err)
	}

	p := &Process{
		job:    job,
		cancel: cancel,
		done:   make(chan struct{}),
		tail:   newTailBuffer(tailLines),
	}

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if err := progress.Monitor(pr, tracker, job.Segment, p.tail); err != nil {
			logger.Debug("progress monitor stopped early", logging.String("job", job.Label), logging.Error(err))
		}
	}()

	started := time.Now()
	go func() {
		waitErr := cmd.Wait()
		_ = pw.Close()
		<-monitorDone
		cancel()

		p.mu.Lock()
		if waitErr != nil {
			if detail := p.tail.Last(); detail != "" {
				p.err = fmt.Errorf("%s: %w: %s", job.Label, waitErr, detail)
			} else {
				p.err = fmt.Errorf("%s: %w", job.Label, waitErr)
			}
		}
		p.mu.Unlock()

		logger.Debug("ffmpeg exited",
			logging.String("job", job.Label),
			logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
			logging.Bool("ok", waitErr == nil),
		)
		close(p.done)
	}()

	return p, nil
}

// Run starts job and waits for it.
func (r *Runner) Run(ctx context.Context, job Job, tracker *progress.Tracker) error {
	p, err := r.Start(ctx, job, tracker)
	if err != nil {
		return err
	}
	return p.Wait()
}

// Job returns the job the process runs.
func (p *Process) Job() Job {
	return p.job
}

// Done is closed once the process has exited and its monitor has finished.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until Done and returns the exit error.
func (p *Process) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop kills the process. It is safe to call more than once and after exit.
func (p *Process) Stop() {
	p.mu.Lock()
	select {
	case <-p.done:
	default:
		p.stopped = true
	}
	p.mu.Unlock()
	p.cancel()
}

// Stopped reports whether Stop was called before the process exited.
func (p *Process) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Diagnostics returns the retained non-progress stderr lines.
func (p *Process) Diagnostics() []string {
	return p.tail.Lines()
}

// ExitCode returns the process exit status from err, or -1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// tailBuffer keeps the last n lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		t.lines = append(t.lines, line)
		if len(t.lines) > t.n {
			t.lines = t.lines[len(t.lines)-t.n:]
		}
	}
	return len(b), nil
}

func (t *tailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

func (t *tailBuffer) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return ""
	}
	return t.lines[len(t.lines)-1]
}
