package transport

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-bookstore-client/api"
	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
	"github.com/jrsteele09/go-bookstore-client/internal/metrics"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// Refresher exchanges a refresh token for a new access token.
// api.AuthAPI satisfies it.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (api.RefreshResult, error)
}

// Authorizer decides which credentials an outgoing request carries and
// refreshes an expired access token on the way.
type Authorizer struct {
	store     *sessions.Store
	refresher Refresher
	now       func() time.Time
	logger    zerolog.Logger
	metrics   *metrics.Collectors
	group     singleflight.Group
}

type Option func(*Authorizer)

func WithNow(now func() time.Time) Option {
	return func(a *Authorizer) {
		a.now = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(a *Authorizer) {
		a.metrics = m
	}
}

func NewAuthorizer(store *sessions.Store, refresher Refresher, opts ...Option) *Authorizer {
	a := &Authorizer{
		store:     store,
		refresher: refresher,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize returns the session whose access token should be attached. ok is
// false when the request must go out without credentials. A failed refresh
// logs the user out and is never returned as an error.
func (a *Authorizer) Authorize(ctx context.Context) (session sessions.Session, ok bool) {
	current := a.store.Session()
	if !current.HasAccessToken() {
		return sessions.Session{}, false
	}
	if !current.IsExpired(a.now()) {
		return current, true
	}

	v, err, _ := a.group.Do(current.RefreshToken, func() (interface{}, error) {
		return a.refresh(ctx, current)
	})
	if err != nil {
		if latest := a.store.Session(); latest.RefreshToken != current.RefreshToken &&
			latest.HasAccessToken() && !latest.IsExpired(a.now()) {
			return latest, true
		}
		return sessions.Session{}, false
	}
	return v.(sessions.Session), true
}

// refresh runs once per expired token; concurrent callers share its outcome.
func (a *Authorizer) refresh(ctx context.Context, current sessions.Session) (sessions.Session, error) {
	if current.RefreshToken == "" {
		a.fail(current, apperrors.ErrInvalidRefreshToken)
		return sessions.Session{}, apperrors.ErrInvalidRefreshToken
	}

	res, err := a.refresher.RefreshToken(context.WithoutCancel(ctx), current.RefreshToken)
	if err != nil {
		err = apperrors.Wrapf(apperrors.ErrRefreshFailed, "%v", err)
		a.fail(current, err)
		return sessions.Session{}, err
	}

	refreshed := current.WithAccessToken(res.AccessToken, res.Exp)
	if state, ok := a.store.LoginIf(refreshed, sameRefreshToken(current)); !ok {
		a.metrics.Refresh("success")
		a.logger.Debug().Msg("Session replaced during refresh, keeping the newer one")
		if !state.IsAuthenticated || !state.LoginData.HasAccessToken() {
			return sessions.Session{}, apperrors.ErrUnauthenticated
		}
		return state.LoginData, nil
	}
	a.metrics.Refresh("success")
	a.logger.Debug().Str("email", refreshed.Email).Str("exp", refreshed.Exp).Msg("Access token refreshed")
	return refreshed, nil
}

// fail logs out unless another context already replaced the session that
// was being refreshed.
func (a *Authorizer) fail(current sessions.Session, err error) {
	a.metrics.Refresh("failure")
	if _, ok := a.store.LogoutIf(sameRefreshToken(current)); !ok {
		a.logger.Warn().Err(err).Msg("Token refresh failed, session was replaced meanwhile")
		return
	}
	a.logger.Warn().Err(err).Msg("Token refresh failed, logged out")
}

func sameRefreshToken(current sessions.Session) func(sessions.State) bool {
	return func(s sessions.State) bool {
		return s.IsAuthenticated && s.LoginData.RefreshToken == current.RefreshToken
	}
}
