package auth

import "errors"

var (
	// ErrInvalidCredential covers both an unknown username and a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredential = errors.New("auth: invalid credential")

	// ErrInternal reports a dependency or token construction failure.
	// The underlying cause is logged, never returned.
	ErrInternal = errors.New("auth: internal error")

	// ErrTokenInvalid covers malformed, mis-signed, expired and
	// wrong-issuer/audience tokens.
	ErrTokenInvalid = errors.New("auth: token invalid")

	ErrClaimConflict     = errors.New("auth: claim conflict")
	ErrInvalidIdentity   = errors.New("auth: invalid identity")
	ErrUserNotFound      = errors.New("auth: user not found")
	ErrMissingSigningKey = errors.New("auth: missing signing key")
	ErrWeakSigningKey    = errors.New("auth: signing key too weak")
)
