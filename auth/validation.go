package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
)

const otpLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail rejects addresses that are obviously malformed.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return apperrors.ErrInvalidEmail
	}
	return nil
}

// ValidateOTP requires exactly six characters.
func ValidateOTP(otp string) error {
	if utf8.RuneCountInString(otp) != otpLength {
		return apperrors.ErrInvalidOTP
	}
	return nil
}
