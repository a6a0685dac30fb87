// Package duckdb implements the query engine port on top of a local DuckDB
// instance. A "job" executes eagerly on submit; its materialized result is
// held in an expiring in-process table and served out one page at a time
// through offset-based page tokens.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"event-feed/internal/domain"
)

// paramPattern finds the named parameters of the fetch query in SQL text.
var paramPattern = regexp.MustCompile(`@(pkg_id|ref_id|cursor)\b`)

type job struct {
	rows      []domain.Row
	expiresAt time.Time
}

// Engine runs query jobs against DuckDB.
type Engine struct {
	db     *sql.DB
	jobTTL time.Duration
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
	now  func() time.Time
}

var _ domain.QueryEngine = (*Engine)(nil)

// New creates an Engine. jobTTL bounds how long a finished job's results stay
// resumable; it should not be shorter than the session cache TTL.
func New(db *sql.DB, jobTTL time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:     db,
		jobTTL: jobTTL,
		logger: logger,
		jobs:   make(map[string]*job),
		now:    time.Now,
	}
}

// SubmitQuery executes the query and materializes its full result under a new
// job id. DuckDB queries are fast enough locally that eager execution stands
// in for the remote backend's asynchronous job model.
func (e *Engine) SubmitQuery(ctx context.Context, spec domain.QuerySpec) (string, error) {
	sqlText, args := bindParams(spec)

	rows, err := e.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return "", fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	materialized, err := scanRows(rows)
	if err != nil {
		return "", fmt.Errorf("scan results: %w", err)
	}

	jobID := "local-" + uuid.NewString()
	now := e.now()

	e.mu.Lock()
	e.sweepLocked(now)
	e.jobs[jobID] = &job{rows: materialized, expiresAt: now.Add(e.jobTTL)}
	e.mu.Unlock()

	e.logger.Debug("query job materialized", "job_id", jobID, "rows", len(materialized))
	return jobID, nil
}

// FetchPage serves one page of a materialized job. An unknown or expired job
// id is an error: the caller must not silently restart the query.
func (e *Engine) FetchPage(_ context.Context, jobID, pageToken string, maxRows int) (*domain.ResultPage, error) {
	offset, err := decodeOffset(pageToken)
	if err != nil {
		return nil, err
	}
	if maxRows <= 0 {
		return nil, fmt.Errorf("maxRows must be positive, got %d", maxRows)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[jobID]
	if !ok || e.now().After(j.expiresAt) {
		delete(e.jobs, jobID)
		return nil, fmt.Errorf("job %s does not exist or has expired", jobID)
	}

	if offset >= len(j.rows) {
		return &domain.ResultPage{}, nil
	}
	end := offset + maxRows
	if end > len(j.rows) {
		end = len(j.rows)
	}

	page := &domain.ResultPage{Rows: j.rows[offset:end]}
	if end < len(j.rows) {
		page.PageToken = encodeOffset(end)
	}
	return page, nil
}

// SetClock overrides the time source. Test use only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// sweepLocked drops expired jobs. Caller holds e.mu.
func (e *Engine) sweepLocked(now time.Time) {
	for id, j := range e.jobs {
		if now.After(j.expiresAt) {
			delete(e.jobs, id)
		}
	}
}

// bindParams rewrites the query's named parameters to positional
// placeholders in order of appearance and returns the matching argument list.
func bindParams(spec domain.QuerySpec) (string, []interface{}) {
	var args []interface{}
	sqlText := paramPattern.ReplaceAllStringFunc(spec.SQL, func(name string) string {
		switch name {
		case "@pkg_id":
			args = append(args, spec.Params.AppPackage)
		case "@ref_id":
			args = append(args, spec.Params.AttributionID)
		case "@cursor":
			args = append(args, spec.Params.Cursor)
		}
		return "?"
	})
	return sqlText, args
}

func scanRows(rows *sql.Rows) ([]domain.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []domain.Row
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(cols))
		for i, col := range cols {
			// Byte slices become strings for JSON serialization.
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
