package sessions

import (
	"fmt"
	"sync"
)

// Store owns the in-memory session. Login and Logout are the only mutations;
// Apply replays a mutation that originated elsewhere through the same paths.
type Store struct {
	mu        sync.RWMutex
	state     State
	observers []*observerEntry
}

type observerEntry struct {
	observer Observer
}

// NewStore creates a store holding the default (logged out) state.
func NewStore() *Store {
	return &Store{state: Default()}
}

// Subscribe registers an observer. The returned function removes it.
func (s *Store) Subscribe(o Observer) func() {
	entry := &observerEntry{observer: o}

	s.mu.Lock()
	s.observers = append(s.observers, entry)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.observers {
			if e == entry {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Current returns a snapshot of the state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Session returns the current session.
func (s *Store) Session() Session {
	return s.Current().LoginData
}

// IsAuthenticated reports the authenticated flag.
func (s *Store) IsAuthenticated() bool {
	return s.Current().IsAuthenticated
}

// Login replaces the whole session and marks the store authenticated.
func (s *Store) Login(session Session) State {
	return s.login(session, SourceLocal)
}

// Logout resets the store to the default state.
func (s *Store) Logout() State {
	return s.logout(SourceLocal)
}

// LoginIf logs in only when cond holds for the state at the moment of the
// write. ok reports whether the login happened.
func (s *Store) LoginIf(session Session, cond func(State) bool) (State, bool) {
	return s.commitIf(cond, MutationLogin, SourceLocal, State{LoginData: session, IsAuthenticated: true})
}

// LogoutIf logs out only when cond holds for the state at the moment of the
// write. ok reports whether the logout happened.
func (s *Store) LogoutIf(cond func(State) bool) (State, bool) {
	return s.commitIf(cond, MutationLogout, SourceLocal, Default())
}

// Apply applies a mutation received from another context or restored from storage.
func (s *Store) Apply(m Mutation) error {
	switch m.Type {
	case MutationLogin:
		s.login(m.State.LoginData, sourceOr(m.Source, SourceRemote))
	case MutationLogout:
		s.logout(sourceOr(m.Source, SourceRemote))
	case MutationRehydrate:
		s.commit(MutationRehydrate, SourceRehydrate, m.State)
	default:
		return fmt.Errorf("[sessions Apply] unknown mutation type %q", m.Type)
	}
	return nil
}

func (s *Store) login(session Session, source Source) State {
	return s.commit(MutationLogin, source, State{LoginData: session, IsAuthenticated: true})
}

func (s *Store) logout(source Source) State {
	return s.commit(MutationLogout, source, Default())
}

func (s *Store) commit(t MutationType, source Source, next State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(t, source, next)
}

func (s *Store) commitIf(cond func(State) bool, t MutationType, source Source, next State) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !cond(s.state) {
		return s.state, false
	}
	return s.commitLocked(t, source, next), true
}

func (s *Store) commitLocked(t MutationType, source Source, next State) State {
	s.state = next
	m := Mutation{Type: t, Source: source, State: next}
	for _, e := range s.observers {
		e.observer.Observe(m)
	}
	return next
}

func sourceOr(source, fallback Source) Source {
	if source == "" {
		return fallback
	}
	return source
}
