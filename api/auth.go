package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-bookstore-client/sessions"
	"github.com/jrsteele09/go-bookstore-client/token/jwt"
)

// AuthAPI wraps the OTP login endpoints.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

type requestOTPBody struct {
	Email string `json:"email"`
}

type verifyOTPBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Email        string    `json:"email"`
	Exp          Timestamp `json:"exp"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string    `json:"access_token"`
	Exp         Timestamp `json:"exp"`
}

// RefreshResult is a freshly issued access token and its expiry.
type RefreshResult struct {
	AccessToken string
	Exp         string
}

// RequestOTP asks the server to email a one-time password.
func (a *AuthAPI) RequestOTP(ctx context.Context, email string) error {
	return a.client.do(ctx, http.MethodPost, "/auth/request-otp", nil, requestOTPBody{Email: email}, nil)
}

// VerifyOTP exchanges an email and OTP for a session.
func (a *AuthAPI) VerifyOTP(ctx context.Context, email, otp string) (sessions.Session, error) {
	var resp loginResponse
	if err := a.client.do(ctx, http.MethodPost, "/auth/verify-otp", nil, verifyOTPBody{Email: email, OTP: otp}, &resp); err != nil {
		return sessions.Session{}, err
	}
	if resp.AccessToken == "" {
		return sessions.Session{}, &Error{Method: http.MethodPost, Path: "/auth/verify-otp", StatusCode: http.StatusOK, Err: errMissingAccessToken}
	}

	session := sessions.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Email:        resp.Email,
		Exp:          expOrClaim(string(resp.Exp), resp.AccessToken),
	}
	if session.Email == "" {
		session.Email = email
	}
	return session, nil
}

// RefreshToken trades a refresh token for a new access token. The client used
// here must not be wrapped by the auth pipeline.
func (a *AuthAPI) RefreshToken(ctx context.Context, refreshToken string) (RefreshResult, error) {
	var resp refreshResponse
	if err := a.client.do(ctx, http.MethodPost, "/auth/refresh-token", nil, refreshBody{RefreshToken: refreshToken}, &resp); err != nil {
		return RefreshResult{}, err
	}
	if resp.AccessToken == "" {
		return RefreshResult{}, &Error{Method: http.MethodPost, Path: "/auth/refresh-token", StatusCode: http.StatusOK, Err: errMissingAccessToken}
	}
	return RefreshResult{
		AccessToken: resp.AccessToken,
		Exp:         expOrClaim(string(resp.Exp), resp.AccessToken),
	}, nil
}

// expOrClaim falls back to the token's own exp claim when the server sent none.
func expOrClaim(exp, accessToken string) string {
	if exp != "" {
		return exp
	}
	if t, ok := jwt.Expiry(accessToken); ok {
		return sessions.FormatExp(t)
	}
	return ""
}
