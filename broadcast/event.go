package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// Event is one session mutation as it travels between contexts.
type Event struct {
	ID      string                `json:"id"`
	Origin  string                `json:"origin"`
	Type    sessions.MutationType `json:"type"`
	Payload sessions.State        `json:"payload"`
	SentAt  time.Time             `json:"sent_at"`
}

// Encode serializes the event for a wire transport.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("[broadcast Encode] %w", err)
	}
	return data, nil
}

// Decode parses an event and rejects types that are never broadcast.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("[broadcast Decode] %w", err)
	}
	if !Broadcastable(e.Type) {
		return Event{}, fmt.Errorf("[broadcast Decode] unexpected event type %q", e.Type)
	}
	return e, nil
}

// Broadcastable reports whether a mutation type is shared with other contexts.
func Broadcastable(t sessions.MutationType) bool {
	return t == sessions.MutationLogin || t == sessions.MutationLogout
}
