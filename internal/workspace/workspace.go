// Package workspace manages the per-job temporary directory that holds pass
// logs, segment files and the concat manifest.
//
// Each workspace lives at <root>/job-<id> and holds an advisory lock for the
// lifetime of the job, which lets the stale sweeper tell crashed runs apart
// from live ones sharing the same root.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

const (
	dirPrefix    = "job-"
	lockFileName = ".lock"
)

// Workspace is an isolated job directory.
type Workspace struct {
	path string
	lock *flock.Flock
	once sync.Once
	err  error
}

// Create makes <root>/job-<jobID> and acquires its lock.
func Create(root, jobID string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	jobID = strings.TrimSpace(jobID)
	if root == "" {
		return nil, errors.New("workspace: empty root")
	}
	if jobID == "" || strings.ContainsAny(jobID, `/\`) {
		return nil, fmt.Errorf("workspace: invalid job id %q", jobID)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create root: %w", err)
	}

	path := filepath.Join(root, dirPrefix+jobID)
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("workspace: create job directory: %w", err)
	}

	lock := flock.New(filepath.Join(path, lockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		_ = os.RemoveAll(path)
		if err == nil {
			err = errors.New("lock held by another process")
		}
		return nil, fmt.Errorf("workspace: acquire lock: %w", err)
	}
	return &Workspace{path: path, lock: lock}, nil
}

// Path returns the workspace directory.
func (w *Workspace) Path() string {
	return w.path
}

// File returns the path of name inside the workspace.
func (w *Workspace) File(name string) string {
	return filepath.Join(w.path, name)
}

// SegmentPath returns the encoded output path for segment label ("a", "b").
func (w *Workspace) SegmentPath(label, ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return w.File("segment-" + strings.ToLower(label) + ext)
}

// PassLogPrefix returns the -passlogfile prefix for segment label.
func (w *Workspace) PassLogPrefix(label string) string {
	return w.File("passlog-" + strings.ToLower(label))
}

// ManifestPath returns the concat manifest path.
func (w *Workspace) ManifestPath() string {
	return w.File("concat.txt")
}

// Cleanup releases the lock and removes the directory. Calls after the first
// return the first call's result.
func (w *Workspace) Cleanup() error {
	if w == nil {
		return nil
	}
	w.once.Do(func() {
		var errs []error
		if err := w.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
		if err := os.RemoveAll(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", w.path, err))
		}
		w.err = errors.Join(errs...)
	})
	return w.err
}

// RemoveFiles deletes paths, ignoring ones that do not exist.
func RemoveFiles(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
