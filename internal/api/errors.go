package api

import (
	"errors"
	"net/http"

	"event-feed/internal/domain"
)

// statusForError maps domain error types onto HTTP status codes. Anything
// unrecognized is a 500.
func statusForError(err error) int {
	var (
		validation *domain.ValidationError
		malformed  *domain.MalformedTokenError
		badKey     *domain.InvalidKeyComponentError
		notFound   *domain.NotFoundError
		busy       *domain.SessionBusyError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &malformed), errors.As(err, &badKey):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &busy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
