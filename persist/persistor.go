package persist

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
	"github.com/jrsteele09/go-bookstore-client/internal/metrics"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// Persistor mirrors the session store into Storage as an encrypted record and
// restores it on start.
type Persistor struct {
	store     *sessions.Store
	storage   Storage
	cipher    *Cipher
	key       string
	whitelist []string
	logger    zerolog.Logger
	metrics   *metrics.Collectors
	onError   func(error)

	writeLock sync.Mutex
	dirty     bool
}

var _ sessions.Observer = (*Persistor)(nil)

type Option func(*Persistor)

// WithKey sets the record name; the storage key becomes "persist:<name>".
func WithKey(name string) Option {
	return func(p *Persistor) {
		p.key = StorageKey(name)
	}
}

// WithWhitelist limits which partitions are persisted.
func WithWhitelist(partitions []string) Option {
	return func(p *Persistor) {
		p.whitelist = partitions
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Persistor) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(p *Persistor) {
		p.metrics = m
	}
}

// WithErrorHandler receives rehydration and encryption errors.
func WithErrorHandler(fn func(error)) Option {
	return func(p *Persistor) {
		p.onError = fn
	}
}

// NewPersistor creates a persistor. Call Attach to start mirroring mutations.
func NewPersistor(store *sessions.Store, storage Storage, cipher *Cipher, opts ...Option) *Persistor {
	p := &Persistor{
		store:     store,
		storage:   storage,
		cipher:    cipher,
		key:       StorageKey("root"),
		whitelist: []string{PartitionAuth},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attach subscribes the persistor to the store.
func (p *Persistor) Attach() func() {
	return p.store.Subscribe(p)
}

// Rehydrate loads the stored record into the store. A missing record leaves
// the store untouched. An unreadable record is removed, the store is reset to
// logged out and the error is returned for reporting.
func (p *Persistor) Rehydrate() error {
	raw, found, err := p.storage.GetItem(p.key)
	if err != nil {
		p.report(err, "Failed to read stored session")
		return err
	}
	if !found {
		p.logger.Debug().Str("key", p.key).Msg("No stored session")
		return nil
	}

	state, err := p.decode(raw)
	if err != nil {
		p.report(err, "Stored session discarded")
		if rmErr := p.storage.RemoveItem(p.key); rmErr != nil {
			p.logger.Err(rmErr).Msg("Failed to remove unreadable session")
		}
		_ = p.store.Apply(sessions.Mutation{Type: sessions.MutationRehydrate, State: sessions.Default()})
		return err
	}

	if err := p.store.Apply(sessions.Mutation{Type: sessions.MutationRehydrate, State: state}); err != nil {
		return fmt.Errorf("[persist Rehydrate] %w", err)
	}
	p.logger.Debug().Bool("authenticated", state.IsAuthenticated).Msg("Session rehydrated")
	return nil
}

// Observe writes the new state. Rehydration is not written back.
func (p *Persistor) Observe(m sessions.Mutation) {
	if m.Type == sessions.MutationRehydrate {
		return
	}
	if err := p.write(m.State); err != nil {
		p.metrics.PersistFailure()
		p.logger.Err(err).Str("mutation", string(m.Type)).Msg("Failed to persist session")
	}
}

// Flush retries the last failed write. It does nothing when storage already
// holds the latest local mutation, so a stale snapshot never replaces a record
// written by another process.
func (p *Persistor) Flush() error {
	if !p.Dirty() {
		return nil
	}
	return p.write(p.store.Current())
}

// Dirty reports whether the last write failed.
func (p *Persistor) Dirty() bool {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	return p.dirty
}

// Purge deletes the stored record without touching the store.
func (p *Persistor) Purge() error {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	p.dirty = false
	return p.storage.RemoveItem(p.key)
}

func (p *Persistor) write(state sessions.State) error {
	err := p.encodeAndStore(state)

	p.writeLock.Lock()
	p.dirty = err != nil
	p.writeLock.Unlock()
	return err
}

func (p *Persistor) encodeAndStore(state sessions.State) error {
	r := Record{Meta: Meta{Version: RecordVersion, Rehydrated: true}}

	if slices.Contains(p.whitelist, PartitionAuth) {
		plaintext, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("[persist write] marshal: %w", err)
		}
		sealed, err := p.cipher.Encrypt(plaintext)
		if err != nil {
			p.report(err, "Session encryption failed")
			return err
		}
		r.Auth = sealed
	}

	raw, err := encodeRecord(r)
	if err != nil {
		return err
	}

	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	return p.storage.SetItem(p.key, raw)
}

func (p *Persistor) decode(raw string) (sessions.State, error) {
	r, err := decodeRecord(raw)
	if err != nil {
		return sessions.Default(), err
	}
	if r.Auth == "" || !slices.Contains(p.whitelist, PartitionAuth) {
		return sessions.Default(), nil
	}

	plaintext, err := p.cipher.Decrypt(r.Auth)
	if err != nil {
		return sessions.Default(), err
	}

	var state sessions.State
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return sessions.Default(), apperrors.Wrapf(apperrors.ErrSessionCorrupt, "state: %v", err)
	}
	return state, nil
}

func (p *Persistor) report(err error, msg string) {
	p.logger.Err(err).Str("key", p.key).Msg(msg)
	if p.onError != nil {
		p.onError(err)
	}
}
