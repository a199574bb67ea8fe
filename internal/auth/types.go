package auth

import "time"

// Credential is a login attempt. It is never persisted.
type Credential struct {
	Username string
	Password string
}

// StoredIdentity is the user record owned by the user store.
type StoredIdentity struct {
	ID                int64
	Username          string
	PasswordHash      string
	PasswordChangedAt time.Time
}

// Token is a signed access token and the instants it is bound to.
type Token struct {
	Raw       string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
