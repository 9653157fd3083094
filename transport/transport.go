package transport

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
)

// AuthTransport attaches the session's bearer token to every request.
type AuthTransport struct {
	Base       http.RoundTripper
	authorizer *Authorizer
}

var _ http.RoundTripper = (*AuthTransport)(nil)

// NewAuthTransport wraps base. A nil base uses http.DefaultTransport.
func NewAuthTransport(base http.RoundTripper, authorizer *Authorizer) *AuthTransport {
	return &AuthTransport{Base: base, authorizer: authorizer}
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	session, ok := t.authorizer.Authorize(req.Context())

	out := req.Clone(req.Context())
	out.Header.Del("Authorization")
	if ok {
		session.Token().SetAuthHeader(out)
	}
	t.authorizer.metrics.Request(ok)

	return t.base().RoundTrip(out)
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewClient returns an http.Client that runs every request through the
// auth pipeline.
func NewClient(base *http.Client, authorizer *Authorizer) *http.Client {
	c := &http.Client{}
	if base != nil {
		*c = *base
	}
	c.Transport = NewAuthTransport(c.Transport, authorizer)
	return c
}

type tokenSource struct {
	authorizer *Authorizer
}

// TokenSource exposes the pipeline as an oauth2.TokenSource. It returns
// ErrUnauthenticated when there is no usable session.
func TokenSource(authorizer *Authorizer) oauth2.TokenSource {
	return &tokenSource{authorizer: authorizer}
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	session, ok := s.authorizer.Authorize(context.Background())
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	return session.Token(), nil
}
