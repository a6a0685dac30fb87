package domain

import "context"

// QueryEngine is the backend analytical query collaborator. Queries execute
// as long-running jobs; results are read one page at a time.
type QueryEngine interface {
	// SubmitQuery starts a new query job and returns its id.
	SubmitQuery(ctx context.Context, spec QuerySpec) (jobID string, err error)
	// FetchPage reads one page of an existing job's results. An empty
	// pageToken reads from the beginning. The returned page carries the
	// backend token for the following page, or an empty token when the job
	// is exhausted.
	FetchPage(ctx context.Context, jobID, pageToken string, maxRows int) (*ResultPage, error)
}

// HistoryRecorder persists per-request session activity for later inspection.
// Implementations must tolerate best-effort use: callers ignore Record errors.
type HistoryRecorder interface {
	Record(ctx context.Context, ev *SessionEvent) error
	List(ctx context.Context, filter HistoryFilter) ([]SessionEvent, error)
}
