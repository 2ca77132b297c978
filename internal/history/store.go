package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	entryColumns = "id, job_id, input_path, output_path, encoder, mode, outcome, message, target_mb, input_bytes, output_bytes, split_seconds, bitrates, elapsed_ms, created_at"
)

// Entry is one recorded job.
type Entry struct {
	ID          int64
	JobID       string
	Input       string
	Output      string
	Encoder     string
	Mode        string
	Outcome     string
	Message     string
	TargetMB    float64
	InputBytes  int64
	OutputBytes int64
	// SplitSeconds is zero for unsplit encodes.
	SplitSeconds float64
	Bitrates     []int
	Elapsed      time.Duration
	CreatedAt    time.Time
}

// Store manages job history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if strings.TrimSpace(entry.JobID) == "" {
		return 0, errors.New("history: job id is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var split any
	if entry.SplitSeconds > 0 {
		split = entry.SplitSeconds
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO jobs (
                job_id, input_path, output_path, encoder, mode, outcome, message,
                target_mb, input_bytes, output_bytes, split_seconds, bitrates, elapsed_ms, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.JobID,
			entry.Input,
			nullableString(entry.Output),
			nullableString(entry.Encoder),
			nullableString(entry.Mode),
			entry.Outcome,
			nullableString(entry.Message),
			entry.TargetMB,
			entry.InputBytes,
			entry.OutputBytes,
			split,
			nullableString(formatBitrates(entry.Bitrates)),
			entry.Elapsed.Milliseconds(),
			entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM jobs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns the entry for jobID, or nil when none exists.
func (s *Store) Get(ctx context.Context, jobID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM jobs WHERE job_id = ?`, jobID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &entry, nil
}

// OutcomeCounts returns the number of recorded jobs per outcome.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM jobs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry      Entry
		output     sql.NullString
		encoder    sql.NullString
		mode       sql.NullString
		message    sql.NullString
		split      sql.NullFloat64
		bitrates   sql.NullString
		elapsedMS  int64
		createdRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.JobID,
		&entry.Input,
		&output,
		&encoder,
		&mode,
		&entry.Outcome,
		&message,
		&entry.TargetMB,
		&entry.InputBytes,
		&entry.OutputBytes,
		&split,
		&bitrates,
		&elapsedMS,
		&createdRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.Output = output.String
	entry.Encoder = encoder.String
	entry.Mode = mode.String
	entry.Message = message.String
	entry.SplitSeconds = split.Float64
	entry.Bitrates = parseBitrates(bitrates.String)
	entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatBitrates(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

func parseBitrates(raw string) []int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []int
	for _, part := range strings.Split(raw, ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			values = append(values, v)
		}
	}
	return values
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
