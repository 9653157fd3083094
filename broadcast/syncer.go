package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-bookstore-client/internal/metrics"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

const (
	defaultSeenTTL        = 5 * time.Minute
	defaultPublishTimeout = 2 * time.Second
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Syncer connects one session store (one context) to a Channel. Local login
// and logout mutations are published; events from other contexts are applied
// to the store. Whatever arrives last wins.
type Syncer struct {
	origin         string
	store          *sessions.Store
	channel        Channel
	seen           *ttlcache.Cache[string, struct{}]
	seenTTL        time.Duration
	publishTimeout time.Duration
	queueSize      int
	onRemote       func(Event)
	logger         zerolog.Logger
	metrics        *metrics.Collectors

	mu          sync.Mutex
	detach      func()
	unsubscribe func()
	queue       chan Event
	drained     chan struct{}
}

var _ sessions.Observer = (*Syncer)(nil)

type SyncerOption func(*Syncer)

func WithOrigin(origin string) SyncerOption {
	return func(s *Syncer) {
		s.origin = origin
	}
}

// WithSeenTTL sets how long event IDs are remembered for duplicate suppression.
func WithSeenTTL(ttl time.Duration) SyncerOption {
	return func(s *Syncer) {
		s.seenTTL = ttl
	}
}

func WithPublishTimeout(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		s.publishTimeout = d
	}
}

// WithPublishQueue moves publishing off the store's write path. Up to size
// events wait for a background sender; further events are dropped and logged.
func WithPublishQueue(size int) SyncerOption {
	return func(s *Syncer) {
		s.queueSize = size
	}
}

// WithRemoteHandler is called after a remote event has been applied.
func WithRemoteHandler(fn func(Event)) SyncerOption {
	return func(s *Syncer) {
		s.onRemote = fn
	}
}

func WithLogger(logger zerolog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Collectors) SyncerOption {
	return func(s *Syncer) {
		s.metrics = m
	}
}

func NewSyncer(store *sessions.Store, channel Channel, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		origin:         uuid.New().String(),
		store:          store,
		channel:        channel,
		seenTTL:        defaultSeenTTL,
		publishTimeout: defaultPublishTimeout,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seen = ttlcache.New(
		ttlcache.WithTTL[string, struct{}](s.seenTTL),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	return s
}

// Origin identifies this context in published events.
func (s *Syncer) Origin() string {
	return s.origin
}

// Start subscribes to the channel and begins observing the store.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		return nil
	}

	unsubscribe, err := s.channel.Subscribe(ctx, s.receive)
	if err != nil {
		return fmt.Errorf("[broadcast Start] subscribe: %w", err)
	}
	s.unsubscribe = unsubscribe
	if s.queueSize > 0 {
		s.queue = make(chan Event, s.queueSize)
		s.drained = make(chan struct{})
		go s.sendLoop(s.queue, s.drained)
	}
	s.detach = s.store.Subscribe(s)

	go s.seen.Start()
	s.logger.Debug().Str("origin", s.origin).Msg("Session sync started")
	return nil
}

// Stop detaches from the store and the channel. The channel itself is not closed.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe == nil {
		return
	}
	s.detach()
	if s.queue != nil {
		// no Observe can run once detached
		close(s.queue)
		<-s.drained
		s.queue, s.drained = nil, nil
	}
	s.unsubscribe()
	s.detach, s.unsubscribe = nil, nil
	s.seen.Stop()
}

// Observe publishes local login and logout mutations. Rehydration and
// mutations that arrived from other contexts are not echoed.
func (s *Syncer) Observe(m sessions.Mutation) {
	if m.Source != sessions.SourceLocal || !Broadcastable(m.Type) {
		return
	}

	e := Event{
		ID:      uuid.New().String(),
		Origin:  s.origin,
		Type:    m.Type,
		Payload: m.State,
		SentAt:  NowTimeFunc().UTC(),
	}
	s.seen.Set(e.ID, struct{}{}, ttlcache.DefaultTTL)

	if s.queue == nil {
		s.publish(e)
		return
	}
	select {
	case s.queue <- e:
	default:
		s.metrics.SyncEvent("out", "dropped")
		s.logger.Warn().Str("type", string(e.Type)).Msg("Sync queue full, dropping session mutation")
	}
}

func (s *Syncer) sendLoop(queue <-chan Event, drained chan<- struct{}) {
	defer close(drained)
	for e := range queue {
		s.publish(e)
	}
}

func (s *Syncer) publish(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
	defer cancel()
	if err := s.channel.Publish(ctx, e); err != nil {
		s.metrics.SyncEvent("out", "error")
		s.logger.Err(err).Str("type", string(e.Type)).Msg("Failed to broadcast session mutation")
		return
	}
	s.metrics.SyncEvent("out", "sent")
}

func (s *Syncer) receive(e Event) {
	if e.Origin == s.origin {
		return
	}
	if s.seen.Has(e.ID) {
		s.metrics.SyncEvent("in", "duplicate")
		return
	}
	s.seen.Set(e.ID, struct{}{}, ttlcache.DefaultTTL)

	if !Broadcastable(e.Type) {
		s.metrics.SyncEvent("in", "rejected")
		s.logger.Warn().Str("type", string(e.Type)).Msg("Ignoring unexpected sync event")
		return
	}

	m := sessions.Mutation{Type: e.Type, Source: sessions.SourceRemote, State: e.Payload}
	if err := s.store.Apply(m); err != nil {
		s.metrics.SyncEvent("in", "error")
		s.logger.Err(err).Msg("Failed to apply sync event")
		return
	}
	s.metrics.SyncEvent("in", "applied")
	s.logger.Debug().Str("type", string(e.Type)).Str("from", e.Origin).Msg("Applied session mutation from another context")

	if s.onRemote != nil {
		s.onRemote(e)
	}
}
