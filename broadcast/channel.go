package broadcast

import (
	"context"
	"sync"
)

// Handler receives events from a Channel.
type Handler func(e Event)

// Channel carries events between every context sharing a namespace.
// A publisher may receive its own events; receivers filter by origin.
type Channel interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, h Handler) (unsubscribe func(), err error)
	Close() error
}

// Hub is an in-process Channel. Publish delivers synchronously to every
// subscriber in subscription order.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]Handler
	order       []int
	nextID      int
	closed      bool
}

var _ Channel = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int]Handler)}
}

func (h *Hub) Publish(_ context.Context, e Event) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(h.order))
	for _, id := range h.order {
		handlers = append(handlers, h.subscribers[id])
	}
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(e)
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, handler Handler) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	id := h.nextID
	h.nextID++
	h.subscribers[id] = handler
	h.order = append(h.order, id)

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
		for i, v := range h.order {
			if v == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}, nil
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subscribers = make(map[int]Handler)
	h.order = nil
	return nil
}
