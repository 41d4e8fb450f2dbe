package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const createLaunchesTable = `
CREATE TABLE IF NOT EXISTS launches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	launch_id   TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	status      TEXT NOT NULL,
	failed_step TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	non_fatal   TEXT NOT NULL DEFAULT '[]'
)`

// SQLite is a journal stored in a local SQLite database.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// NewSQLite opens (and creates if needed) the journal database at path.
func NewSQLite(ctx context.Context, path string, logger *zap.SugaredLogger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite journal path is empty")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}
	// Single writer; launches are recorded once per process.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, createLaunchesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create launches table: %w", err)
	}

	logger.Infow("SQLite launch journal opened", "path", path)
	return &SQLite{db: db, path: path, logger: logger}, nil
}

func (s *SQLite) Record(ctx context.Context, entry Entry) error {
	nonFatal, err := json.Marshal(entry.NonFatal)
	if err != nil {
		return fmt.Errorf("failed to encode non-fatal failures: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO launches (launch_id, started_at, duration_ns, status, failed_step, error, non_fatal)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.LaunchID,
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		int64(entry.Duration),
		entry.Status,
		entry.FailedStep,
		entry.Error,
		string(nonFatal),
	)
	if err != nil {
		return fmt.Errorf("failed to insert launch %s: %w", entry.LaunchID, err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT launch_id, started_at, duration_ns, status, failed_step, error, non_fatal
		 FROM launches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query launches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			startedAt  string
			durationNs int64
			nonFatal   string
		)
		if err := rows.Scan(&e.LaunchID, &startedAt, &durationNs, &e.Status, &e.FailedStep, &e.Error, &nonFatal); err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
		}
		e.Duration = time.Duration(durationNs)
		if err := json.Unmarshal([]byte(nonFatal), &e.NonFatal); err != nil {
			return nil, fmt.Errorf("invalid non_fatal column: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
