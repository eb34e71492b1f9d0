// Package history persists check-run outcomes to a local SQLite database
// so past results can be listed and pruned.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/checkrun/internal/task"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS check_runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT    NOT NULL,
    task        TEXT    NOT NULL,
    tool        TEXT    NOT NULL,
    target      TEXT    NOT NULL,
    exit_code   INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    timestamp   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_check_runs_timestamp ON check_runs(timestamp);
CREATE INDEX IF NOT EXISTS idx_check_runs_run_id ON check_runs(run_id);
`

// Record is a single persisted check outcome. Checks executed in the
// same invocation share a RunID.
type Record struct {
	ID        int64
	RunID     string
	Task      string
	Tool      string
	Target    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// Passed reports whether the recorded check succeeded.
func (r Record) Passed() bool {
	return r.ExitCode == 0
}

// Store manages the SQLite database for run history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a Store and initializes the database schema.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so subsequent statements wait on locks instead
	// of failing immediately.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with backoff retry on lock errors
// that can occur during concurrent initialization of the same database file.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists one row per check result from a task summary.
// All rows share a freshly generated run ID, which is returned.
func (s *Store) RecordRun(ctx context.Context, summary *task.Summary) (string, error) {
	runID := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO check_runs (run_id, task, tool, target, exit_code, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, result := range summary.Results {
		_, err := tx.ExecContext(ctx, query,
			runID,
			summary.Task,
			result.Tool,
			summary.Target,
			result.ExitCode,
			result.Duration.Milliseconds(),
			result.StartedAt.UTC(),
		)
		if err != nil {
			return "", fmt.Errorf("insert check run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return runID, nil
}

// ListRecent returns the most recent check records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, run_id, task, tool, target, exit_code, duration_ms, timestamp
		FROM check_runs ORDER BY timestamp DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query check runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Task, &rec.Tool, &rec.Target,
			&rec.ExitCode, &durationMS, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan check run: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check runs: %w", err)
	}

	return records, nil
}

// CleanupOldRuns removes records older than the specified number of days.
// Returns the number of deleted records. 0 or negative keeps everything.
func (s *Store) CleanupOldRuns(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)

	result, err := s.db.ExecContext(ctx, `DELETE FROM check_runs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return deleted, nil
}
