package auth

import (
	"context"
	"errors"
)

// AuthState records what the auth middleware concluded about a request.
type AuthState int

const (
	// StateAnonymous means no bearer token was presented.
	StateAnonymous AuthState = iota
	StateAuthenticated
	// StateRejected means a token was presented and failed validation.
	StateRejected
)

func (s AuthState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	default:
		return "anonymous"
	}
}

type ctxKey int

const (
	ctxIdentity ctxKey = iota
	ctxState
)

// Keys used on the gin context for handler convenience.
const (
	GinKeyUserID    = "user_id"
	GinKeyAuthState = "auth_state"
)

var errNoIdentity = errors.New("auth: no identity in context")

func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, ctxIdentity, id)
	return context.WithValue(ctx, ctxState, StateAuthenticated)
}

func WithAuthState(ctx context.Context, s AuthState) context.Context {
	return context.WithValue(ctx, ctxState, s)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok && id.UserID > 0
}

// StateFrom defaults to StateAnonymous when the middleware did not run.
func StateFrom(ctx context.Context) AuthState {
	if s, ok := ctx.Value(ctxState).(AuthState); ok {
		return s
	}
	return StateAnonymous
}

func UserID(ctx context.Context) (int64, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return 0, errNoIdentity
	}
	return id.UserID, nil
}
