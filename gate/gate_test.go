package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jrsteele09/go-bookstore-client/gate"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

func TestPolicies(t *testing.T) {
	anonymous := sessions.Default()
	signedIn := sessions.State{LoginData: sessions.Session{AccessToken: "A"}, IsAuthenticated: true}

	tests := []struct {
		name   string
		policy gate.Policy
		state  sessions.State
		want   gate.Decision
	}{
		{"public anonymous", gate.Public, anonymous, gate.Decision{Allowed: true}},
		{"public signed in", gate.Public, signedIn, gate.Decision{RedirectTarget: "/books"}},
		{"protected anonymous", gate.Protected, anonymous, gate.Decision{RedirectTarget: "/"}},
		{"protected signed in", gate.Protected, signedIn, gate.Decision{Allowed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy(tt.state))
		})
	}
}

func TestCheck_ReevaluatesEveryCall(t *testing.T) {
	store := sessions.NewStore()
	assert.False(t, gate.Check(store, gate.Protected).Allowed)

	store.Login(sessions.Session{AccessToken: "A"})
	assert.True(t, gate.Check(store, gate.Protected).Allowed)
	assert.False(t, gate.Check(store, gate.Public).Allowed)

	store.Logout()
	assert.Equal(t, gate.Decision{RedirectTarget: "/"}, gate.Check(store, gate.Protected))
}
