package api

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
)

var errMissingAccessToken = fmt.Errorf("%w: missing access_token", apperrors.ErrBadResponse)

// Error describes a failed API call. StatusCode is zero when no response
// was received.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports a 401 or 403 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if !apperrors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// UserMessage returns the server supplied message when there is one and the
// generic fallback otherwise. Transport details are never shown.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if apperrors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
