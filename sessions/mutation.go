package sessions

// MutationType names a store mutation.
type MutationType string

const (
	MutationLogin     MutationType = "login"
	MutationLogout    MutationType = "logout"
	MutationRehydrate MutationType = "rehydrate"
)

// Source tells observers where a mutation came from.
type Source string

const (
	SourceLocal     Source = "local"
	SourceRemote    Source = "remote"
	SourceRehydrate Source = "rehydrate"
)

// Mutation is delivered to every observer after it has been applied.
// State is the store state after the mutation.
type Mutation struct {
	Type   MutationType
	Source Source
	State  State
}

// Observer is notified synchronously, while the store is locked. Observers
// must not call back into the Store.
type Observer interface {
	Observe(m Mutation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(m Mutation)

func (f ObserverFunc) Observe(m Mutation) {
	f(m)
}
