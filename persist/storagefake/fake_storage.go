package storagefake

import (
	"sync"

	"github.com/jrsteele09/go-bookstore-client/persist"
)

var _ persist.Storage = (*FakeStorage)(nil)

// FakeStorage is an in-memory Storage. SetErr, when set, is returned by SetItem.
type FakeStorage struct {
	items  map[string]string
	writes int
	SetErr error
	lock   sync.RWMutex
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		items: make(map[string]string),
	}
}

func (fs *FakeStorage) GetItem(key string) (string, bool, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	v, ok := fs.items[key]
	return v, ok, nil
}

func (fs *FakeStorage) SetItem(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.SetErr != nil {
		return fs.SetErr
	}
	fs.items[key] = value
	fs.writes++
	return nil
}

func (fs *FakeStorage) RemoveItem(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.items, key)
	return nil
}

// Writes returns the number of successful SetItem calls.
func (fs *FakeStorage) Writes() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.writes
}
