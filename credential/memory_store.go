package credential

import (
	"context"
	"sync"

	"github.com/viant/mailnotify"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mux    sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Load(_ context.Context) (*Pair, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return &Pair{
		AccessToken:  s.values[mailnotify.AccessTokenKey],
		RefreshToken: s.values[mailnotify.RefreshTokenKey],
	}, nil
}

func (s *MemoryStore) Save(_ context.Context, pair *Pair) error {
	if err := validate(pair); err != nil {
		return err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.values[mailnotify.AccessTokenKey] = pair.AccessToken
	if pair.RefreshToken == "" {
		delete(s.values, mailnotify.RefreshTokenKey)
	} else {
		s.values[mailnotify.RefreshTokenKey] = pair.RefreshToken
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	delete(s.values, mailnotify.AccessTokenKey)
	delete(s.values, mailnotify.RefreshTokenKey)
	return nil
}

// Get returns a raw value by key.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	v, ok := s.values[key]
	return v, ok
}
