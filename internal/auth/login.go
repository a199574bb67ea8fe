package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"profile-api/pkg/logger"
	"profile-api/pkg/metrics"
)

// UserStore looks users up by login name. Implementations return
// ErrUserNotFound when no such user exists.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (StoredIdentity, error)
}

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) bool
}

type TokenIssuer interface {
	Issue(now time.Time, identity StoredIdentity, claims ClaimSet) (Token, error)
}

// ClaimsExtender supplies extra claims for a user that passed verification.
type ClaimsExtender func(ctx context.Context, identity StoredIdentity) (map[string]string, error)

// LoginService exchanges a credential for an access token.
type LoginService struct {
	users  UserStore
	hasher Hasher
	tokens TokenIssuer
	now    func() time.Time
	extend ClaimsExtender

	// decoy is verified against when there is no stored hash, so unknown
	// usernames cost the same as wrong passwords.
	decoy string
}

type LoginOption func(*LoginService)

func WithLoginClock(now func() time.Time) LoginOption {
	return func(s *LoginService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithClaimsExtender(fn ClaimsExtender) LoginOption {
	return func(s *LoginService) {
		s.extend = fn
	}
}

func NewLoginService(users UserStore, hasher Hasher, tokens TokenIssuer, opts ...LoginOption) (*LoginService, error) {
	if users == nil || hasher == nil || tokens == nil {
		return nil, errors.New("auth: login service requires users, hasher and tokens")
	}

	seed := make([]byte, 18)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("auth: decoy seed: %w", err)
	}
	decoy, err := hasher.Hash(base64.RawStdEncoding.EncodeToString(seed))
	if err != nil {
		return nil, fmt.Errorf("auth: decoy hash: %w", err)
	}

	s := &LoginService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
		decoy:  decoy,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Login returns a token for a valid credential. Failures are either
// ErrInvalidCredential, identical for unknown user and wrong password, or
// ErrInternal. No token is issued on any failure path.
func (s *LoginService) Login(ctx context.Context, cred Credential) (Token, error) {
	tok, outcome, err := s.login(ctx, cred)
	metrics.ObserveLogin(outcome)
	return tok, err
}

func (s *LoginService) login(ctx context.Context, cred Credential) (Token, string, error) {
	log := logger.From(ctx)

	if cred.Username == "" || cred.Password == "" {
		s.hasher.Verify(cred.Password, s.decoy)
		return Token{}, metrics.LoginInvalidCredential, ErrInvalidCredential
	}

	user, err := s.users.GetUserByUsername(ctx, cred.Username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		s.hasher.Verify(cred.Password, s.decoy)
		log.Info("login failed", "reason", "invalid_credential")
		return Token{}, metrics.LoginInvalidCredential, ErrInvalidCredential
	case err != nil:
		log.Error("login: user lookup failed", "err", err)
		return Token{}, metrics.LoginInternal, ErrInternal
	}

	if !s.hasher.Verify(cred.Password, user.PasswordHash) {
		log.Info("login failed", "reason", "invalid_credential")
		return Token{}, metrics.LoginInvalidCredential, ErrInvalidCredential
	}

	// The caller may have gone away during hashing.
	if err := ctx.Err(); err != nil {
		log.Warn("login: aborted", "err", err)
		return Token{}, metrics.LoginInternal, ErrInternal
	}

	var extra map[string]string
	if s.extend != nil {
		extra, err = s.extend(ctx, user)
		if err != nil {
			log.Error("login: claims extension failed", "user_id", user.ID, "err", err)
			return Token{}, metrics.LoginInternal, ErrInternal
		}
	}

	claims, err := BuildClaims(user, extra)
	if err != nil {
		log.Error("login: build claims failed", "user_id", user.ID, "err", err)
		return Token{}, metrics.LoginInternal, ErrInternal
	}

	tok, err := s.tokens.Issue(s.now(), user, claims)
	if err != nil {
		log.Error("login: issue token failed", "user_id", user.ID, "err", err)
		return Token{}, metrics.LoginInternal, ErrInternal
	}

	log.Info("login succeeded", "user_id", user.ID, "jti", tok.ID)
	return tok, metrics.LoginSuccess, nil
}
