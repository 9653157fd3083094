package persist_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
	"github.com/jrsteele09/go-bookstore-client/persist"
	"github.com/jrsteele09/go-bookstore-client/persist/storagefake"
	"github.com/jrsteele09/go-bookstore-client/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var rootKey = persist.StorageKey("root")

type fixture struct {
	storage   *storagefake.FakeStorage
	cipher    *persist.Cipher
	store     *sessions.Store
	persistor *persist.Persistor
	errs      []error
}

func setupFixture(t *testing.T, storage *storagefake.FakeStorage, opts ...persist.Option) *fixture {
	t.Helper()

	c, err := persist.NewCipher(testSecret)
	require.NoError(t, err)

	f := &fixture{storage: storage, cipher: c, store: sessions.NewStore()}
	opts = append(opts, persist.WithErrorHandler(func(err error) { f.errs = append(f.errs, err) }))
	f.persistor = persist.NewPersistor(f.store, storage, c, opts...)
	f.persistor.Attach()
	return f
}

func futureSession() sessions.Session {
	return sessions.Session{
		AccessToken:  "A",
		RefreshToken: "R",
		Email:        "u@x.com",
		Exp:          sessions.FormatExp(time.Now().Add(time.Hour)),
	}
}

func TestPersistor_RoundTripAcrossRestart(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	first := setupFixture(t, storage)

	s := futureSession()
	first.store.Login(s)

	restarted := setupFixture(t, storage)
	require.NoError(t, restarted.persistor.Rehydrate())

	assert.Equal(t, s, restarted.store.Session())
	assert.True(t, restarted.store.IsAuthenticated())
	assert.Empty(t, restarted.errs)
}

func TestPersistor_RecordIsEncryptedAndVersioned(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	f := setupFixture(t, storage)
	f.store.Login(futureSession())

	raw, found, err := storage.GetItem(rootKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, raw, "u@x.com")
	assert.NotContains(t, raw, `"R"`)

	var record persist.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	assert.Equal(t, persist.RecordVersion, record.Meta.Version)
	assert.NotEmpty(t, record.Auth)
}

func TestPersistor_LogoutIsPersisted(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	f := setupFixture(t, storage)
	f.store.Login(futureSession())
	f.store.Logout()

	restarted := setupFixture(t, storage)
	require.NoError(t, restarted.persistor.Rehydrate())
	assert.Equal(t, sessions.Default(), restarted.store.Current())
}

func TestPersistor_MissingRecordIsFreshStart(t *testing.T) {
	f := setupFixture(t, storagefake.NewFakeStorage())

	require.NoError(t, f.persistor.Rehydrate())
	assert.Equal(t, sessions.Default(), f.store.Current())
	assert.Empty(t, f.errs)
}

func TestPersistor_RehydrationIsNotWrittenBack(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	setupFixture(t, storage).store.Login(futureSession())
	writes := storage.Writes()

	restarted := setupFixture(t, storage)
	require.NoError(t, restarted.persistor.Rehydrate())
	assert.Equal(t, writes, storage.Writes())
}

func TestPersistor_CorruptRecordIsTreatedAsLoggedOut(t *testing.T) {
	tests := []struct {
		name   string
		raw    func(t *testing.T) string
		target error
	}{
		{
			name:   "not json",
			raw:    func(t *testing.T) string { return "{garbage" },
			target: apperrors.ErrSessionCorrupt,
		},
		{
			name:   "unknown version",
			raw:    func(t *testing.T) string { return `{"auth":"x","_persist":{"version":7}}` },
			target: apperrors.ErrSessionVersion,
		},
		{
			name:   "bad ciphertext",
			raw:    func(t *testing.T) string { return `{"auth":"bm90LWVuY3J5cHRlZA==","_persist":{"version":1}}` },
			target: apperrors.ErrSessionCorrupt,
		},
		{
			name: "encrypted with another secret",
			raw: func(t *testing.T) string {
				other, err := persist.NewCipher("another-secret")
				require.NoError(t, err)
				sealed, err := other.Encrypt([]byte(`{"login_data":{"access_token":"A"},"isAuthenticated":true}`))
				require.NoError(t, err)
				return `{"auth":"` + sealed + `","_persist":{"version":1}}`
			},
			target: apperrors.ErrSessionCorrupt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := storagefake.NewFakeStorage()
			f := setupFixture(t, storage)
			f.store.Login(futureSession())
			require.NoError(t, storage.SetItem(rootKey, tt.raw(t)))

			err := f.persistor.Rehydrate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
			assert.Equal(t, sessions.Default(), f.store.Current())
			require.Len(t, f.errs, 1)

			_, found, _ := storage.GetItem(rootKey)
			assert.False(t, found)
		})
	}
}

func TestPersistor_WriteFailureIsSwallowed(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	storage.SetErr = errors.New("quota exceeded")
	f := setupFixture(t, storage)

	s := futureSession()
	assert.NotPanics(t, func() { f.store.Login(s) })
	assert.Equal(t, s, f.store.Session())
}

func TestPersistor_WhitelistWithoutAuthStoresNoSession(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	f := setupFixture(t, storage, persist.WithWhitelist(nil))
	f.store.Login(futureSession())

	raw, found, err := storage.GetItem(rootKey)
	require.NoError(t, err)
	require.True(t, found)

	var record persist.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	assert.Empty(t, record.Auth)

	restarted := setupFixture(t, storage)
	require.NoError(t, restarted.persistor.Rehydrate())
	assert.False(t, restarted.store.IsAuthenticated())
}

func TestPersistor_CustomKeyAndPurge(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	f := setupFixture(t, storage, persist.WithKey("books"))
	f.store.Login(futureSession())

	_, found, _ := storage.GetItem("persist:books")
	require.True(t, found)

	require.NoError(t, f.persistor.Purge())
	_, found, _ = storage.GetItem("persist:books")
	assert.False(t, found)
	assert.True(t, f.store.IsAuthenticated())

	require.NoError(t, f.persistor.Flush())
	_, found, _ = storage.GetItem("persist:books")
	assert.False(t, found)
}

func TestPersistor_FlushOnlyRetriesFailedWrites(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	f := setupFixture(t, storage)

	f.store.Login(futureSession())
	require.False(t, f.persistor.Dirty())
	require.NoError(t, f.persistor.Flush())
	assert.Equal(t, 1, storage.Writes())

	storage.SetErr = errors.New("disk full")
	f.store.Logout()
	require.True(t, f.persistor.Dirty())
	require.Error(t, f.persistor.Flush())

	storage.SetErr = nil
	require.NoError(t, f.persistor.Flush())
	assert.False(t, f.persistor.Dirty())
	assert.Equal(t, 2, storage.Writes())

	restarted := setupFixture(t, storage)
	require.NoError(t, restarted.persistor.Rehydrate())
	assert.False(t, restarted.store.IsAuthenticated())
}
