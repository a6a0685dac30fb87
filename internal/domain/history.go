package domain

import "time"

// Session actions recorded in history.
const (
	SessionActionStart  = "START"
	SessionActionResume = "RESUME"
)

// Session outcome statuses recorded in history.
const (
	SessionStatusOK    = "OK"
	SessionStatusError = "ERROR"
)

// SessionEvent is one record of session activity: a single page served (or
// attempted) for one query session.
type SessionEvent struct {
	ID           int64     `json:"id"`
	AppID        string    `json:"app_id"`
	Fingerprint  string    `json:"fingerprint"`
	JobID        string    `json:"job_id"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	RowCount     int       `json:"row_count"`
	Exhausted    bool      `json:"exhausted"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryFilter holds filter parameters for listing session events.
type HistoryFilter struct {
	AppID *string
	Limit int
}
