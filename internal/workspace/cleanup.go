package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"videocompress/internal/logging"
)

// CleanStaleResult contains the outcome of a stale workspace sweep.
type CleanStaleResult struct {
	Removed []string
	// Skipped lists old workspaces whose lock is still held by a live job.
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job-* directories under root older than maxAge whose
// lock is free. These are left behind by crashed or killed runs.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		held, release, err := acquireIfPresent(dirPath)
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if held {
			result.Skipped = append(result.Skipped, dirPath)
			if logger != nil {
				logger.Debug("stale workspace still locked; skipping", logging.String("path", dirPath))
			}
			continue
		}

		removeErr := os.RemoveAll(dirPath)
		release()
		if removeErr != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: removeErr})
			logging.WarnWithContext(logger, "failed to remove stale workspace", "workspace_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(removeErr),
				logging.String(logging.FieldErrorHint, "check paths.work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
				logging.String(logging.FieldEventType, "workspace_cleanup"),
			)
		}
	}

	return result
}

// DirInfo contains metadata about a workspace directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Locked  bool
}

// List returns the job workspaces under root.
func List(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Locked:  isLocked(dirPath),
		})
	}
	return dirs, nil
}

func isLocked(dirPath string) bool {
	held, release, err := acquireIfPresent(dirPath)
	if err != nil {
		return false
	}
	release()
	return held
}

// acquireIfPresent tries the workspace lock without creating a lock file
// (which would bump the directory mtime). held reports a lock owned by a
// live job; release must be called when held is false.
func acquireIfPresent(dirPath string) (held bool, release func(), err error) {
	noop := func() {}
	lockPath := filepath.Join(dirPath, lockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		if os.IsNotExist(err) {
			return false, noop, nil
		}
		return false, noop, err
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, noop, err
	}
	if !ok {
		return true, noop, nil
	}
	return false, func() { _ = lock.Unlock() }, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
