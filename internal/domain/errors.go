// Package domain defines core types, interfaces, and errors for the event feed.
package domain

import "fmt"

// ValidationError indicates a caller-supplied argument failed format validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates the requested identifier resolves to no known data.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// MalformedTokenError indicates a continuation token could not be decoded.
type MalformedTokenError struct {
	Message string
}

func (e *MalformedTokenError) Error() string { return e.Message }

// InvalidKeyComponentError indicates a cache key was built from a value that
// cannot be represented as a string or number. This is a programming error
// raised before any network call.
type InvalidKeyComponentError struct {
	Message string
}

func (e *InvalidKeyComponentError) Error() string { return e.Message }

// SessionBusyError indicates another request is currently driving the same
// query session. The caller should retry after a short delay.
type SessionBusyError struct {
	Message string
}

func (e *SessionBusyError) Error() string { return e.Message }

// JobSubmissionError indicates the query backend refused to start a job.
type JobSubmissionError struct {
	Message string
	Err     error
}

func (e *JobSubmissionError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *JobSubmissionError) Unwrap() error { return e.Err }

// JobResumeError indicates the query backend could not resume an existing job,
// typically because the job expired after long inactivity.
type JobResumeError struct {
	Message string
	Err     error
}

func (e *JobResumeError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *JobResumeError) Unwrap() error { return e.Err }

// CacheError indicates the session cache backend failed on get/set/delete.
// It is never silently treated as a cache miss.
type CacheError struct {
	Message string
	Err     error
}

func (e *CacheError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *CacheError) Unwrap() error { return e.Err }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrMalformedToken creates a MalformedTokenError with a formatted message.
func ErrMalformedToken(format string, args ...interface{}) *MalformedTokenError {
	return &MalformedTokenError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidKeyComponent creates an InvalidKeyComponentError with a formatted message.
func ErrInvalidKeyComponent(format string, args ...interface{}) *InvalidKeyComponentError {
	return &InvalidKeyComponentError{Message: fmt.Sprintf(format, args...)}
}

// ErrSessionBusy creates a SessionBusyError with a formatted message.
func ErrSessionBusy(format string, args ...interface{}) *SessionBusyError {
	return &SessionBusyError{Message: fmt.Sprintf(format, args...)}
}

// ErrJobSubmission wraps a backend error that occurred while starting a job.
func ErrJobSubmission(err error, format string, args ...interface{}) *JobSubmissionError {
	return &JobSubmissionError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrJobResume wraps a backend error that occurred while resuming a job.
func ErrJobResume(err error, format string, args ...interface{}) *JobResumeError {
	return &JobResumeError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrCache wraps a cache backend error.
func ErrCache(err error, format string, args ...interface{}) *CacheError {
	return &CacheError{Message: fmt.Sprintf(format, args...), Err: err}
}
