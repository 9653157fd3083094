package errors

import (
	"errors"
	"fmt"
)

// Common error types for the bookstore client
var (
	// Session errors
	ErrUnauthenticated = errors.New("not logged in")
	ErrSessionCorrupt  = errors.New("stored session is corrupt")
	ErrSessionVersion  = errors.New("stored session has an unsupported version")

	// Token errors
	ErrRefreshFailed       = errors.New("token refresh failed")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Validation errors
	ErrInvalidEmail = errors.New("please enter a valid email address")
	ErrInvalidOTP   = errors.New("please enter a valid 6-digit OTP")
	ErrInvalidBook  = errors.New("invalid book")

	// Transport errors
	ErrNetwork     = errors.New("network error")
	ErrServer      = errors.New("server error")
	ErrBadResponse = errors.New("unexpected response")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
