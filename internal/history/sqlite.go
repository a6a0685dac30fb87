// Package history persists session activity records in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"

	"event-feed/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	app_id        TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	job_id        TEXT NOT NULL DEFAULT '',
	action        TEXT NOT NULL,
	status        TEXT NOT NULL,
	row_count     INTEGER NOT NULL DEFAULT 0,
	exhausted     INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_session_events_app_id ON session_events(app_id, created_at);
`

// defaultListLimit caps history listings when the caller does not specify one.
const defaultListLimit = 50

// Repo is a SQLite-backed HistoryRecorder.
type Repo struct {
	db *sql.DB
}

var _ domain.HistoryRecorder = (*Repo)(nil)

// NewRepo creates the repository and ensures its schema exists.
func NewRepo(db *sql.DB) (*Repo, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create session_events schema: %w", err)
	}
	return &Repo{db: db}, nil
}

// Record inserts one session event.
func (r *Repo) Record(ctx context.Context, ev *domain.SessionEvent) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO session_events
			(app_id, fingerprint, job_id, action, status, row_count, exhausted, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.AppID, ev.Fingerprint, ev.JobID, ev.Action, ev.Status,
		ev.RowCount, boolToInt(ev.Exhausted), ev.ErrorMessage, ev.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// List returns session events, newest first.
func (r *Repo) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.SessionEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, app_id, fingerprint, job_id, action, status, row_count,
		       exhausted, error_message, duration_ms, created_at
		FROM session_events`
	args := []interface{}{}
	if filter.AppID != nil {
		query += ` WHERE app_id = ?`
		args = append(args, *filter.AppID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list session events: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var events []domain.SessionEvent
	for rows.Next() {
		var ev domain.SessionEvent
		var exhausted int
		if err := rows.Scan(
			&ev.ID, &ev.AppID, &ev.Fingerprint, &ev.JobID, &ev.Action, &ev.Status,
			&ev.RowCount, &exhausted, &ev.ErrorMessage, &ev.DurationMs, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		ev.Exhausted = exhausted != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
