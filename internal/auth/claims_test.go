package auth

import (
	"errors"
	"testing"
	"time"
)

func TestBuildClaims_BaseClaims(t *testing.T) {
	changed := time.Unix(1700000000, 0).UTC()
	cs, err := BuildClaims(StoredIdentity{ID: 42, Username: "alice", PasswordChangedAt: changed}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cs.Subject != "42" {
		t.Fatalf("expected subject 42, got %q", cs.Subject)
	}
	if cs.PasswordEpoch != 1700000000 {
		t.Fatalf("unexpected epoch %d", cs.PasswordEpoch)
	}
	if cs.Extra != nil {
		t.Fatalf("expected no extra claims, got %v", cs.Extra)
	}
}

func TestBuildClaims_MergesExtra(t *testing.T) {
	extra := map[string]string{"tenant": "acme"}
	cs, err := BuildClaims(StoredIdentity{ID: 1}, extra)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cs.Extra["tenant"] != "acme" {
		t.Fatalf("expected tenant claim, got %v", cs.Extra)
	}

	extra["tenant"] = "changed"
	if cs.Extra["tenant"] != "acme" {
		t.Fatalf("claim set must not alias the caller's map")
	}
}

func TestBuildClaims_RejectsReservedNames(t *testing.T) {
	for _, name := range []string{"sub", "exp", "iss", "aud", "iat", "jti", "nbf", ClaimPasswordEpoch, ClaimExtra} {
		_, err := BuildClaims(StoredIdentity{ID: 1}, map[string]string{name: "x"})
		if !errors.Is(err, ErrClaimConflict) {
			t.Fatalf("%s: expected ErrClaimConflict, got %v", name, err)
		}
	}
}

func TestBuildClaims_RejectsEmptyName(t *testing.T) {
	_, err := BuildClaims(StoredIdentity{ID: 1}, map[string]string{" ": "x"})
	if !errors.Is(err, ErrClaimConflict) {
		t.Fatalf("expected ErrClaimConflict, got %v", err)
	}
}

func TestBuildClaims_RequiresID(t *testing.T) {
	_, err := BuildClaims(StoredIdentity{Username: "alice"}, nil)
	if !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestPasswordEpoch_ZeroTime(t *testing.T) {
	if got := PasswordEpoch(time.Time{}); got != 0 {
		t.Fatalf("expected 0 for zero time, got %d", got)
	}
}
