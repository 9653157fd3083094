package fakeotpapi

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-bookstore-client/api"
	"github.com/jrsteele09/go-bookstore-client/auth"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

var _ auth.OTPAPI = (*FakeOTPAPI)(nil)

// FakeOTPAPI accepts one code per email.
type FakeOTPAPI struct {
	codes    map[string]string
	sessions map[string]sessions.Session
	requests []string
	Err      error
	lock     sync.Mutex
}

func NewFakeOTPAPI() *FakeOTPAPI {
	return &FakeOTPAPI{
		codes:    make(map[string]string),
		sessions: make(map[string]sessions.Session),
	}
}

// Issue registers the code and the session returned when it is verified.
func (f *FakeOTPAPI) Issue(email, otp string, session sessions.Session) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.codes[email] = otp
	f.sessions[email] = session
}

func (f *FakeOTPAPI) Requests() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *FakeOTPAPI) RequestOTP(_ context.Context, email string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.requests = append(f.requests, email)
	return f.Err
}

func (f *FakeOTPAPI) VerifyOTP(_ context.Context, email, otp string) (sessions.Session, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.Err != nil {
		return sessions.Session{}, f.Err
	}
	if code, ok := f.codes[email]; !ok || code != otp {
		return sessions.Session{}, &api.Error{Method: "POST", Path: "/auth/verify-otp", StatusCode: 400, Message: "Invalid OTP"}
	}
	return f.sessions[email], nil
}
