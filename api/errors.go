package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("habitica: invalid user id or api token")
	// ErrNoUser is returned by a watch that ended before any snapshot was delivered.
	ErrNoUser = errors.New("no user available")
	ErrClosed = errors.New("repository closed")
)

type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("habitica: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("habitica: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
