package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bookstore-client/auth"
	fakeotpapi "github.com/jrsteele09/go-bookstore-client/auth/repofakes"
	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

const testEmail = "john.doe@example.com"

type testFixture struct {
	api     *fakeotpapi.FakeOTPAPI
	store   *sessions.Store
	service *auth.Service
}

func newFixture() *testFixture {
	f := &testFixture{
		api:   fakeotpapi.NewFakeOTPAPI(),
		store: sessions.NewStore(),
	}
	f.service = auth.NewService(f.api, f.store, zerolog.Nop())
	return f
}

func testSession() sessions.Session {
	return sessions.Session{AccessToken: "A", RefreshToken: "R", Email: testEmail, Exp: "2030-01-01T00:00:00Z"}
}

func TestSendOTP(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.SendOTP(context.Background(), " "+testEmail))
	require.Equal(t, []string{testEmail}, f.api.Requests())
}

func TestSendOTP_InvalidEmailSkipsNetwork(t *testing.T) {
	f := newFixture()
	err := f.service.SendOTP(context.Background(), "not-an-email")
	require.ErrorIs(t, err, apperrors.ErrInvalidEmail)
	require.Empty(t, f.api.Requests())
}

func TestSendOTP_NetworkFailureIsGeneric(t *testing.T) {
	f := newFixture()
	f.api.Err = errors.New("dial tcp: connection refused")

	err := f.service.SendOTP(context.Background(), testEmail)
	require.EqualError(t, err, auth.SendOTPFailedMsg)

	var failure *auth.Failure
	require.ErrorAs(t, err, &failure)
	require.ErrorContains(t, failure.Err, "connection refused")
}

func TestVerifyOTP_LogsIn(t *testing.T) {
	f := newFixture()
	f.api.Issue(testEmail, "123456", testSession())

	s, err := f.service.VerifyOTP(context.Background(), testEmail, "123456")
	require.NoError(t, err)
	require.Equal(t, testSession(), s)
	require.True(t, f.store.IsAuthenticated())
	require.Equal(t, testSession(), f.store.Session())
}

func TestVerifyOTP_WrongCodeShowsServerMessage(t *testing.T) {
	f := newFixture()
	f.api.Issue(testEmail, "123456", testSession())

	_, err := f.service.VerifyOTP(context.Background(), testEmail, "654321")
	require.EqualError(t, err, "Invalid OTP")
	require.False(t, f.store.IsAuthenticated())
}

func TestVerifyOTP_NetworkFailureIsGeneric(t *testing.T) {
	f := newFixture()
	f.api.Err = errors.New("timeout")

	_, err := f.service.VerifyOTP(context.Background(), testEmail, "123456")
	require.EqualError(t, err, auth.VerifyOTPFailedMsg)
	require.False(t, f.store.IsAuthenticated())
}

func TestVerifyOTP_ValidationBeforeNetwork(t *testing.T) {
	f := newFixture()
	f.api.Err = errors.New("must not be called")

	_, err := f.service.VerifyOTP(context.Background(), testEmail, "12345")
	require.ErrorIs(t, err, apperrors.ErrInvalidOTP)

	_, err = f.service.VerifyOTP(context.Background(), "bad", "123456")
	require.ErrorIs(t, err, apperrors.ErrInvalidEmail)
}

func TestLogout(t *testing.T) {
	f := newFixture()
	f.store.Login(testSession())

	f.service.Logout()
	f.service.Logout()
	require.Equal(t, sessions.Default(), f.store.Current())
}
