package auth

import (
	"context"

	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// OTPAPI is the remote side of the login flow. api.AuthAPI satisfies it.
type OTPAPI interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (sessions.Session, error)
}
