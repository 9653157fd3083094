// Package app wires the session store, its persistence and sync, and the
// API clients into one handle owned by the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-bookstore-client/api"
	"github.com/jrsteele09/go-bookstore-client/auth"
	"github.com/jrsteele09/go-bookstore-client/broadcast"
	"github.com/jrsteele09/go-bookstore-client/broadcast/redisbus"
	"github.com/jrsteele09/go-bookstore-client/internal/config"
	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
	"github.com/jrsteele09/go-bookstore-client/internal/logging"
	"github.com/jrsteele09/go-bookstore-client/internal/metrics"
	"github.com/jrsteele09/go-bookstore-client/persist"
	"github.com/jrsteele09/go-bookstore-client/sessions"
	"github.com/jrsteele09/go-bookstore-client/transport"
)

const publishQueueSize = 64

type App struct {
	Config     config.Config
	Logger     zerolog.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Collectors
	Store      *sessions.Store
	Storage    persist.Storage
	Persistor  *persist.Persistor
	Channel    broadcast.Channel
	Syncer     *broadcast.Syncer
	Authorizer *transport.Authorizer
	AuthAPI    *api.AuthAPI
	BookAPI    *api.BookAPI
	Auth       *auth.Service

	detach []func()
}

type Option func(*options)

type options struct {
	storage  persist.Storage
	channel  broadcast.Channel
	onRemote func(broadcast.Event)
}

// WithStorage replaces the file storage under the data folder.
func WithStorage(s persist.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithChannel replaces the channel chosen from the sync configuration.
func WithChannel(c broadcast.Channel) Option {
	return func(o *options) {
		o.channel = c
	}
}

// WithRemoteHandler is called after an event from another instance is applied.
func WithRemoteHandler(fn func(broadcast.Event)) Option {
	return func(o *options) {
		o.onRemote = fn
	}
}

// New builds the application and restores the stored session. An unreadable
// stored session is logged and the app starts logged out.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Store:    sessions.NewStore(),
	}
	a.Metrics = metrics.New(a.Registry)
	a.detach = append(a.detach, a.Store.Subscribe(sessions.ObserverFunc(func(m sessions.Mutation) {
		a.Metrics.Mutation(string(m.Type), string(m.Source), m.State.IsAuthenticated)
	})))

	if err := a.initPersistence(o.storage); err != nil {
		return nil, err
	}
	if err := a.initSync(ctx, o.channel, o.onRemote); err != nil {
		a.Close()
		return nil, err
	}
	a.initAPI()
	return a, nil
}

func (a *App) initPersistence(storage persist.Storage) error {
	if storage == nil {
		fs, err := persist.NewFileStorage(a.Config.GetDataFolder())
		if err != nil {
			return fmt.Errorf("[app New] %w", err)
		}
		storage = fs
	}
	a.Storage = storage

	cipher, err := persist.NewCipher(a.Config.GetSecretKey())
	if err != nil {
		return fmt.Errorf("[app New] %w", err)
	}

	a.Persistor = persist.NewPersistor(a.Store, storage, cipher,
		persist.WithKey(a.Config.GetStorageKey()),
		persist.WithWhitelist(a.Config.GetPersistWhitelist()),
		persist.WithLogger(logging.Component(a.Logger, "persist")),
		persist.WithMetrics(a.Metrics),
	)
	a.detach = append(a.detach, a.Persistor.Attach())

	if err := a.Persistor.Rehydrate(); err != nil && !apperrors.Is(err, apperrors.ErrSessionCorrupt) && !apperrors.Is(err, apperrors.ErrSessionVersion) {
		a.Logger.Warn().Err(err).Msg("Starting without stored session")
	}
	return nil
}

func (a *App) initSync(ctx context.Context, channel broadcast.Channel, onRemote func(broadcast.Event)) error {
	logger := logging.Component(a.Logger, "sync")
	syncOpts := []broadcast.SyncerOption{
		broadcast.WithSeenTTL(a.Config.GetSeenEventTTL()),
		broadcast.WithLogger(logger),
		broadcast.WithMetrics(a.Metrics),
	}
	if channel == nil {
		if url := a.Config.GetRedisURL(); url != "" {
			bus, err := redisbus.NewFromURL(url, a.Config.GetNamespace(), logger)
			if err != nil {
				return fmt.Errorf("[app New] %w", err)
			}
			channel = bus
			// a slow Redis must not hold the store lock
			syncOpts = append(syncOpts, broadcast.WithPublishQueue(publishQueueSize))
		} else {
			channel = broadcast.NewHub()
		}
	}
	a.Channel = channel

	if onRemote != nil {
		syncOpts = append(syncOpts, broadcast.WithRemoteHandler(onRemote))
	}
	a.Syncer = broadcast.NewSyncer(a.Store, channel, syncOpts...)
	if err := a.Syncer.Start(ctx); err != nil {
		return fmt.Errorf("[app New] start sync: %w", err)
	}
	return nil
}

func (a *App) initAPI() {
	// The refresh call bypasses the auth pipeline.
	plain := api.NewClient(a.Config.GetBaseURL(), &http.Client{Timeout: a.Config.GetTimeout()})
	a.AuthAPI = api.NewAuthAPI(plain)

	a.Authorizer = transport.NewAuthorizer(a.Store, a.AuthAPI,
		transport.WithLogger(logging.Component(a.Logger, "transport")),
		transport.WithMetrics(a.Metrics),
	)
	authed := api.NewClient(a.Config.GetBaseURL(),
		transport.NewClient(&http.Client{Timeout: a.Config.GetTimeout()}, a.Authorizer))
	a.BookAPI = api.NewBookAPI(authed)

	a.Auth = auth.NewService(api.NewAuthAPI(authed), a.Store, logging.Component(a.Logger, "auth"))
}

// Purge logs out, which other instances observe, and deletes the stored
// record.
func (a *App) Purge() error {
	a.Store.Logout()
	if err := a.Persistor.Purge(); err != nil {
		return fmt.Errorf("[app Purge] %w", err)
	}
	return nil
}

// Close stops sync and retries a session write that failed earlier.
func (a *App) Close() error {
	var errs []error
	if a.Syncer != nil {
		a.Syncer.Stop()
	}
	if a.Channel != nil {
		if err := a.Channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if a.Persistor != nil {
		if err := a.Persistor.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush session: %w", err))
		}
	}
	for i := len(a.detach) - 1; i >= 0; i-- {
		a.detach[i]()
	}
	a.detach = nil
	return apperrors.Join(errs...)
}
