package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error types.
var (
	ErrAccessDenied   = errors.New("access denied")
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// AccessError represents an error due to access denial.
type AccessError struct {
	Message    string
	StatusCode int
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access error (%d): %s", e.StatusCode, e.Message)
}

// IsAccessError checks if an error is an access error. Collection
// failures caused by the caller's credentials get a 4xx instead of a
// generic 500.
func IsAccessError(err error) bool {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return accessErr.StatusCode == http.StatusForbidden ||
			accessErr.StatusCode == http.StatusNotFound ||
			accessErr.StatusCode == http.StatusUnauthorized
	}
	if errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrNotFound) {
		return true
	}
	// String checks cover errors surfaced by the GitHub API client.
	errStr := err.Error()
	return strings.Contains(errStr, "401 Bad credentials") ||
		strings.Contains(errStr, "403 ") ||
		strings.Contains(errStr, "404 Not Found") ||
		strings.Contains(errStr, "API rate limit exceeded")
}

// NewAccessError creates a new access error.
func NewAccessError(statusCode int, message string) error {
	return &AccessError{
		Message:    message,
		StatusCode: statusCode,
	}
}
