package users

import (
	"context"
	"errors"
	"testing"

	"profile-api/internal/auth"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Put(auth.StoredIdentity{ID: 1, Username: "alice", PasswordHash: "h"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	u, err := s.GetUserByUsername(context.Background(), "alice")
	if err != nil || u.ID != 1 {
		t.Fatalf("expected alice, got %+v, %v", u, err)
	}
	if _, err := s.GetUserByUsername(context.Background(), "Alice"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("lookup must be exact, got %v", err)
	}
	if err := s.Put(auth.StoredIdentity{Username: "nobody"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestMemoryStore_HonorsCancellation(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.GetUserByUsername(ctx, "alice"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
