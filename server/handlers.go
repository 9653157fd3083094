package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-bookstore-client/gate"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// SessionStatus is the token-free view of the session.
type SessionStatus struct {
	Authenticated bool          `json:"authenticated" yaml:"authenticated"`
	Email         string        `json:"email,omitempty" yaml:"email,omitempty"`
	Exp           string        `json:"exp,omitempty" yaml:"exp,omitempty"`
	Public        gate.Decision `json:"public" yaml:"public"`
	Protected     gate.Decision `json:"protected" yaml:"protected"`
}

func NewSessionStatus(state sessions.State) SessionStatus {
	return SessionStatus{
		Authenticated: state.IsAuthenticated,
		Email:         state.LoginData.Email,
		Exp:           state.LoginData.Exp,
		Public:        gate.Public(state),
		Protected:     gate.Protected(state),
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, NewSessionStatus(s.store.Current()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
