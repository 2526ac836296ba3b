package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// database persists journal records to SQLite
type database struct {
	db   *sql.DB
	path string
}

func openDatabase(dbPath string) (*database, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &database{db: db, path: dbPath}
	if err := d.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return d, nil
}

func (d *database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		enqueued_at INTEGER NOT NULL,
		resolved_at INTEGER NOT NULL,
		wait_ms INTEGER NOT NULL,
		browser_name TEXT,
		session_id TEXT,
		error_message TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_session_requests_request ON session_requests(request_id);
	CREATE INDEX IF NOT EXISTS idx_session_requests_resolved ON session_requests(resolved_at);
	CREATE INDEX IF NOT EXISTS idx_session_requests_outcome ON session_requests(outcome);
	`

	_, err := d.db.Exec(schema)
	return err
}

func (d *database) insert(rec Record) error {
	query := `
	INSERT INTO session_requests (
		request_id, outcome, enqueued_at, resolved_at, wait_ms,
		browser_name, session_id, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.Exec(query,
		rec.RequestID, string(rec.Outcome), rec.EnqueuedAt.Unix(), rec.ResolvedAt.Unix(),
		rec.WaitDuration.Milliseconds(), rec.BrowserName, rec.SessionID, rec.ErrorMessage)
	return err
}

// byOutcome retrieves persisted records with a given outcome, newest first
func (d *database) byOutcome(outcome Outcome, limit int) ([]Record, error) {
	query := `
	SELECT request_id, outcome, enqueued_at, resolved_at, wait_ms,
	       browser_name, session_id, error_message
	FROM session_requests
	WHERE outcome = ?
	ORDER BY resolved_at DESC
	LIMIT ?`

	rows, err := d.db.Query(query, string(outcome), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		var outcomeStr string
		var enqueued, resolved, waitMs int64

		err := rows.Scan(&rec.RequestID, &outcomeStr, &enqueued, &resolved, &waitMs,
			&rec.BrowserName, &rec.SessionID, &rec.ErrorMessage)
		if err != nil {
			return nil, err
		}

		rec.Outcome = Outcome(outcomeStr)
		rec.EnqueuedAt = time.Unix(enqueued, 0)
		rec.ResolvedAt = time.Unix(resolved, 0)
		rec.WaitDuration = time.Duration(waitMs) * time.Millisecond
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (d *database) cleanup(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge).Unix()
	_, err := d.db.Exec("DELETE FROM session_requests WHERE resolved_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired journal records: %w", err)
	}
	return nil
}

func (d *database) count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM session_requests").Scan(&n)
	return n, err
}

func (d *database) close() error {
	return d.db.Close()
}
