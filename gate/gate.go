// Package gate decides whether the current session may enter a surface.
package gate

import "github.com/jrsteele09/go-bookstore-client/sessions"

const (
	// LandingRoute is where authenticated users are sent.
	LandingRoute = "/books"
	// EntryRoute is where anonymous users are sent.
	EntryRoute = "/"
)

// Decision is the outcome of a gate. RedirectTarget is empty when Allowed.
type Decision struct {
	Allowed        bool   `json:"allowed" yaml:"allowed"`
	RedirectTarget string `json:"redirect_target,omitempty" yaml:"redirect_target,omitempty"`
}

// Policy evaluates a session state. Policies hold no state between calls.
type Policy func(sessions.State) Decision

// Public admits only anonymous users, e.g. the login surface.
func Public(state sessions.State) Decision {
	if !state.IsAuthenticated {
		return Decision{Allowed: true}
	}
	return Decision{RedirectTarget: LandingRoute}
}

// Protected admits only authenticated users.
func Protected(state sessions.State) Decision {
	if state.IsAuthenticated {
		return Decision{Allowed: true}
	}
	return Decision{RedirectTarget: EntryRoute}
}

// Check evaluates policy against the store's current state.
func Check(store *sessions.Store, policy Policy) Decision {
	return policy(store.Current())
}
