// Package prefs provides the per-device key-value preference store backing
// bookmarks and the profile.
//
// Values are opaque strings. Every backend is read-your-writes consistent for
// a single caller and safe for concurrent use; concurrent writers to the same
// key resolve as last writer wins.
package prefs

import (
	"context"
	"errors"
	"sync"
)

// Key names a preference slot.
type Key string

// Preference keys shared with the mobile app's local storage layout.
const (
	KeyFavorites Key = "favorites"
	KeySeeLater  Key = "seeLater"
	KeyUserName  Key = "userName"
	KeyUserPhoto Key = "userPhoto"
	KeyDarkMode  Key = "darkMode"
)

// ErrEmptyOwner is returned when a call omits the owning device id.
var ErrEmptyOwner = errors.New("preference owner is required")

// Store reads and writes string preferences scoped by owner.
type Store interface {
	// Get returns the stored value. found is false when the key was never set.
	Get(ctx context.Context, owner string, key Key) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, owner string, key Key, value string) error
}

// InMemoryStore is a Store backed by a map. Used for tests and the
// single-process development server.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[Key]string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		values: make(map[string]map[Key]string),
	}
}

// Get implements Store.
func (s *InMemoryStore) Get(ctx context.Context, owner string, key Key) (string, bool, error) {
	if owner == "" {
		return "", false, ErrEmptyOwner
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[owner][key]
	return v, ok, nil
}

// Set implements Store.
func (s *InMemoryStore) Set(ctx context.Context, owner string, key Key, value string) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.values[owner]
	if !ok {
		m = make(map[Key]string)
		s.values[owner] = m
	}
	m[key] = value
	return nil
}
