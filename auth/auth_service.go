package auth

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-bookstore-client/api"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// Service drives the email and OTP login flow against the session store.
type Service struct {
	api    OTPAPI
	store  *sessions.Store
	logger zerolog.Logger
}

func NewService(otpAPI OTPAPI, store *sessions.Store, logger zerolog.Logger) *Service {
	return &Service{api: otpAPI, store: store, logger: logger}
}

// SendOTP validates the email and asks the server to send a code. Validation
// errors are returned as is; remote failures come back as a *Failure.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	if err := s.api.RequestOTP(ctx, email); err != nil {
		s.logger.Err(err).Msg("Failed to send OTP")
		return &Failure{Message: api.UserMessage(err, SendOTPFailedMsg), Err: err}
	}
	s.logger.Info().Str("email", email).Msg("OTP sent")
	return nil
}

// VerifyOTP exchanges the code for a session and logs the user in.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) (sessions.Session, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return sessions.Session{}, err
	}
	if err := ValidateOTP(otp); err != nil {
		return sessions.Session{}, err
	}

	session, err := s.api.VerifyOTP(ctx, email, otp)
	if err != nil {
		s.logger.Err(err).Msg("Failed to verify OTP")
		return sessions.Session{}, &Failure{Message: api.UserMessage(err, VerifyOTPFailedMsg), Err: err}
	}

	s.store.Login(session)
	s.logger.Info().Str("email", session.Email).Msg("Logged in")
	return session, nil
}

// Logout clears the session locally. There is no server call.
func (s *Service) Logout() {
	s.store.Logout()
	s.logger.Info().Msg("Logged out")
}
