package sessions

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Session holds the credentials of the logged in user. Exp is kept as the
// string the auth server sent; an empty value means no expiry is known.
type Session struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	Email        string `json:"email" yaml:"email"`
	Exp          string `json:"exp" yaml:"exp"`
}

// State is the auth partition: the session plus the authenticated flag.
type State struct {
	LoginData       Session `json:"login_data" yaml:"login_data"`
	IsAuthenticated bool    `json:"isAuthenticated" yaml:"is_authenticated"`
}

// Default returns the logged out state.
func Default() State {
	return State{}
}

// expLayouts are tried in order when parsing Exp. Timestamps without an
// offset are read as UTC.
var expLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseExp parses an expiry timestamp. ok is false for empty or unparsable values.
func ParseExp(exp string) (t time.Time, ok bool) {
	exp = strings.TrimSpace(exp)
	if exp == "" {
		return time.Time{}, false
	}
	for _, layout := range expLayouts {
		if t, err := time.Parse(layout, exp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatExp renders t the way Exp is stored.
func FormatExp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// HasAccessToken reports whether an access token is present.
func (s Session) HasAccessToken() bool {
	return s.AccessToken != ""
}

// ExpiresAt returns the parsed expiry, if any.
func (s Session) ExpiresAt() (time.Time, bool) {
	return ParseExp(s.Exp)
}

// IsExpired reports now > exp. A session without a usable expiry never expires.
func (s Session) IsExpired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	if !ok {
		return false
	}
	return now.After(exp)
}

// WithAccessToken returns a copy with the access token and expiry replaced.
// The refresh token and email are retained.
func (s Session) WithAccessToken(accessToken, exp string) Session {
	s.AccessToken = accessToken
	s.Exp = exp
	return s
}

// Token exposes the session as an oauth2 bearer token.
func (s Session) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
	if exp, ok := s.ExpiresAt(); ok {
		t.Expiry = exp
	}
	return t
}
