package redisbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-bookstore-client/broadcast"
)

// Bus is a broadcast.Channel over Redis pub/sub. Every client process that
// uses the same namespace is one context.
type Bus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger

	mu   sync.Mutex
	subs []*redis.PubSub
}

var _ broadcast.Channel = (*Bus)(nil)

// ChannelName returns the pub/sub channel used for a namespace.
func ChannelName(namespace string) string {
	return fmt.Sprintf("%s:session-sync", namespace)
}

// New creates a bus on an existing client.
func New(client *redis.Client, namespace string, logger zerolog.Logger) *Bus {
	return &Bus{
		client:  client,
		channel: ChannelName(namespace),
		logger:  logger,
	}
}

// NewFromURL parses a redis:// URL and creates the client.
func NewFromURL(rawURL, namespace string, logger zerolog.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("[redisbus NewFromURL] %w", err)
	}
	return New(redis.NewClient(opts), namespace, logger), nil
}

func (b *Bus) Publish(ctx context.Context, e broadcast.Event) error {
	data, err := broadcast.Encode(e)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("[redisbus Publish] %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed and then delivers
// messages from a background goroutine until unsubscribe is called.
func (b *Bus) Subscribe(ctx context.Context, h broadcast.Handler) (func(), error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("[redisbus Subscribe] %w", err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			e, err := broadcast.Decode([]byte(msg.Payload))
			if err != nil {
				b.logger.Err(err).Str("channel", msg.Channel).Msg("Dropping malformed sync message")
				continue
			}
			h(e)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(ps)
			if err := ps.Close(); err != nil {
				b.logger.Err(err).Msg("Failed to close subscription")
			}
			<-done
		})
	}, nil
}

// Close closes open subscriptions and the Redis client.
func (b *Bus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ps := range subs {
		ps.Close()
	}
	return b.client.Close()
}

func (b *Bus) remove(ps *redis.PubSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == ps {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
