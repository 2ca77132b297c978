package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs deletes *.log files and rotated copies (videocompress.log.1) in
// dir whose mtime is older than retentionDays. The active file is kept. It
// returns the number of files removed; retentionDays <= 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir, active string, retentionDays int) int {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	activeBase := filepath.Base(active)
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == activeBase || !isLogName(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions on paths.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned",
				String("path", path),
				Duration("age", time.Since(info.ModTime()).Round(time.Hour)),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}

func isLogName(name string) bool {
	return strings.HasSuffix(name, ".log") || strings.Contains(name, ".log.")
}
