package users

import (
	"context"
	"errors"
	"sync"

	"profile-api/internal/auth"
)

// MemoryStore is an in-process user store for local runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byName map[string]auth.StoredIdentity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byName: make(map[string]auth.StoredIdentity)}
}

// Put adds or replaces the user with the same username.
func (s *MemoryStore) Put(u auth.StoredIdentity) error {
	if u.ID <= 0 || u.Username == "" {
		return errors.New("users: id and username are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName[u.Username] = u
	return nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (auth.StoredIdentity, error) {
	if err := ctx.Err(); err != nil {
		return auth.StoredIdentity{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byName[username]
	if !ok {
		return auth.StoredIdentity{}, auth.ErrUserNotFound
	}
	return u, nil
}
