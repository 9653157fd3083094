package jwt

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Expiry reads the exp claim of an access token without verifying it. The
// client never holds the signing key; the claim is only used when the auth
// server did not send an explicit expiry. ok is false for opaque tokens.
func Expiry(rawToken string) (exp time.Time, ok bool) {
	if strings.Count(rawToken, ".") != 2 {
		return time.Time{}, false
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &jwtlib.RegisteredClaims{})
	if err != nil {
		return time.Time{}, false
	}

	expiresAt, err := token.Claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, false
	}
	return expiresAt.Time, true
}
