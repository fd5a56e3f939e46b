// Package errors defines the sentinel errors shared by the injector's
// packages and maps them to HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSkillNotFound     = errors.New("skill not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCorpusUnavailable = errors.New("skill corpus unavailable")
	ErrReloadInProgress  = errors.New("corpus reload already in progress")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

// statuses is checked in order; the first sentinel in an error's chain wins.
var statuses = []struct {
	sentinel error
	status   int
}{
	{ErrSkillNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrReloadInProgress, http.StatusConflict},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrCorpusUnavailable, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError pairs a sentinel with the status and message a client sees.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// HTTPStatusCode returns the status carried by an AppError, else the status
// of the first known sentinel in err's chain, else 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, s := range statuses {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Public returns the status and message to show a client. Server errors are
// reduced to "internal error" unless the corpus is merely not loaded yet.
func Public(err error) (int, string) {
	status := HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, ErrCorpusUnavailable) {
		return status, ErrInternal.Error()
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return status, appErr.Message
	}
	return status, err.Error()
}
