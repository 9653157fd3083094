package broadcast_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bookstore-client/broadcast"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// countingChannel records every published event before handing it to a Hub.
type countingChannel struct {
	*broadcast.Hub
	mu        sync.Mutex
	published []broadcast.Event
	err       error
}

func (c *countingChannel) Publish(ctx context.Context, e broadcast.Event) error {
	c.mu.Lock()
	c.published = append(c.published, e)
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Hub.Publish(ctx, e)
}

func (c *countingChannel) Published() []broadcast.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]broadcast.Event(nil), c.published...)
}

// slowChannel holds every publish until release is closed.
type slowChannel struct {
	*broadcast.Hub
	entered chan struct{}
	release chan struct{}
}

func (c *slowChannel) Publish(ctx context.Context, e broadcast.Event) error {
	c.entered <- struct{}{}
	<-c.release
	return c.Hub.Publish(ctx, e)
}

type tab struct {
	store  *sessions.Store
	syncer *broadcast.Syncer
}

func openTab(t *testing.T, ch broadcast.Channel, opts ...broadcast.SyncerOption) *tab {
	t.Helper()
	store := sessions.NewStore()
	syncer := broadcast.NewSyncer(store, ch, opts...)
	require.NoError(t, syncer.Start(context.Background()))
	t.Cleanup(syncer.Stop)
	return &tab{store: store, syncer: syncer}
}

func testSession(token string) sessions.Session {
	return sessions.Session{
		AccessToken:  token,
		RefreshToken: "R",
		Email:        "u@x.com",
		Exp:          sessions.FormatExp(time.Now().Add(time.Hour)),
	}
}

func TestSyncer_LoginAndLogoutReachOtherContexts(t *testing.T) {
	ch := &countingChannel{Hub: broadcast.NewHub()}
	a := openTab(t, ch)
	b := openTab(t, ch)
	c := openTab(t, ch)

	s := testSession("A")
	a.store.Login(s)

	assert.Equal(t, s, b.store.Session())
	assert.True(t, b.store.IsAuthenticated())
	assert.Equal(t, s, c.store.Session())

	b.store.Logout()

	assert.Equal(t, sessions.Default(), a.store.Current())
	assert.Equal(t, sessions.Default(), c.store.Current())

	assert.Len(t, ch.Published(), 2, "remote mutations must not be re-broadcast")
}

func TestSyncer_RehydrationIsNotBroadcast(t *testing.T) {
	ch := &countingChannel{Hub: broadcast.NewHub()}
	a := openTab(t, ch)
	b := openTab(t, ch)

	require.NoError(t, a.store.Apply(sessions.Mutation{
		Type:  sessions.MutationRehydrate,
		State: sessions.State{LoginData: testSession("A"), IsAuthenticated: true},
	}))

	assert.Empty(t, ch.Published())
	assert.False(t, b.store.IsAuthenticated())
}

func TestSyncer_RemoteMutationsStillReachLocalObservers(t *testing.T) {
	ch := broadcast.NewHub()
	a := openTab(t, ch)
	b := openTab(t, ch)

	var seen []sessions.Mutation
	b.store.Subscribe(sessions.ObserverFunc(func(m sessions.Mutation) { seen = append(seen, m) }))

	a.store.Login(testSession("A"))

	require.Len(t, seen, 1)
	assert.Equal(t, sessions.SourceRemote, seen[0].Source)
	assert.Equal(t, sessions.MutationLogin, seen[0].Type)
}

func TestSyncer_LastWriteWins(t *testing.T) {
	ch := broadcast.NewHub()
	a := openTab(t, ch)
	b := openTab(t, ch)
	c := openTab(t, ch)

	a.store.Login(testSession("from-a"))
	b.store.Login(testSession("from-b"))

	assert.Equal(t, "from-b", a.store.Session().AccessToken)
	assert.Equal(t, "from-b", b.store.Session().AccessToken)
	assert.Equal(t, "from-b", c.store.Session().AccessToken)
}

func TestSyncer_DropsDuplicatesAndOwnEvents(t *testing.T) {
	ch := broadcast.NewHub()

	var applied []broadcast.Event
	a := openTab(t, ch, broadcast.WithRemoteHandler(func(e broadcast.Event) { applied = append(applied, e) }))

	e := broadcast.Event{
		ID:      "event-1",
		Origin:  "another-process",
		Type:    sessions.MutationLogin,
		Payload: sessions.State{LoginData: testSession("A"), IsAuthenticated: true},
	}
	require.NoError(t, ch.Publish(context.Background(), e))
	require.NoError(t, ch.Publish(context.Background(), e))

	own := e
	own.ID = "event-2"
	own.Origin = a.syncer.Origin()
	own.Payload = sessions.State{LoginData: testSession("own"), IsAuthenticated: true}
	require.NoError(t, ch.Publish(context.Background(), own))

	require.Len(t, applied, 1)
	assert.Equal(t, "A", a.store.Session().AccessToken)
}

func TestSyncer_PublishFailureIsSwallowed(t *testing.T) {
	ch := &countingChannel{Hub: broadcast.NewHub(), err: errors.New("channel down")}
	a := openTab(t, ch)

	s := testSession("A")
	assert.NotPanics(t, func() { a.store.Login(s) })
	assert.Equal(t, s, a.store.Session())
	assert.Len(t, ch.Published(), 1)
}

func TestSyncer_StopDetaches(t *testing.T) {
	ch := &countingChannel{Hub: broadcast.NewHub()}
	a := openTab(t, ch)
	b := openTab(t, ch)

	b.syncer.Stop()
	a.store.Login(testSession("A"))
	b.store.Login(testSession("B"))

	assert.Equal(t, "B", b.store.Session().AccessToken)
	assert.Equal(t, "A", a.store.Session().AccessToken)
	assert.Len(t, ch.Published(), 1)
}

func TestSyncer_PublishQueueKeepsStoreResponsive(t *testing.T) {
	ch := &slowChannel{Hub: broadcast.NewHub(), entered: make(chan struct{}, 4), release: make(chan struct{})}
	a := openTab(t, ch, broadcast.WithPublishQueue(1))
	b := openTab(t, ch)

	mutated := make(chan struct{})
	go func() {
		defer close(mutated)
		a.store.Login(testSession("A"))
		<-ch.entered
		a.store.Logout()
		a.store.Login(testSession("C"))
	}()

	select {
	case <-mutated:
	case <-time.After(time.Second):
		t.Fatal("store mutations blocked on a slow channel")
	}
	assert.Equal(t, "C", a.store.Session().AccessToken)
	assert.False(t, b.store.IsAuthenticated())

	close(ch.release)
	a.syncer.Stop()

	assert.Equal(t, sessions.Default(), b.store.Current(), "queued events are sent in order, the overflow is dropped")
}

func TestDecode(t *testing.T) {
	data, err := broadcast.Encode(broadcast.Event{ID: "1", Origin: "o", Type: sessions.MutationLogout})
	require.NoError(t, err)

	e, err := broadcast.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sessions.MutationLogout, e.Type)

	_, err = broadcast.Decode([]byte(`{"id":"1","type":"rehydrate"}`))
	require.Error(t, err)

	_, err = broadcast.Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestHub_ClosedRejectsUse(t *testing.T) {
	hub := broadcast.NewHub()
	require.NoError(t, hub.Close())

	err := hub.Publish(context.Background(), broadcast.Event{})
	assert.ErrorIs(t, err, broadcast.ErrClosed)

	_, err = hub.Subscribe(context.Background(), func(broadcast.Event) {})
	assert.ErrorIs(t, err, broadcast.ErrClosed)
}
