package userstore

import (
	"context"
	"sync"

	"github.com/authgate/authgate"
)

// MemoryStore is a map-backed store for tests and examples.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]authgate.UserRecord // keyed by identifier
	byID  map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]authgate.UserRecord),
		byID:  make(map[string]string),
	}
}

// Put stores or replaces a record.
func (s *MemoryStore) Put(rec authgate.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[rec.Identifier] = rec
	s.byID[rec.UserID] = rec.Identifier
}

// GetByIdentifier returns the record for identifier, or ErrUserNotFound.
func (s *MemoryStore) GetByIdentifier(_ context.Context, identifier string) (authgate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[identifier]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return rec, nil
}

// UpdatePasswordHash replaces the stored hash for userID.
func (s *MemoryStore) UpdatePasswordHash(_ context.Context, userID string, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identifier, ok := s.byID[userID]
	if !ok {
		return authgate.ErrUserNotFound
	}
	rec := s.users[identifier]
	rec.PasswordHash = newHash
	s.users[identifier] = rec
	return nil
}
