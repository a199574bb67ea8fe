package auth

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"

	"profile-api/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MaxTokenLength bounds the raw token size accepted by Verify.
const MaxTokenLength = 8192

const headerKeyID = "kid"

// Manager issues and verifies access tokens with a single process-wide key.
// It is safe for concurrent use.
type Manager struct {
	key      signingKey
	keyID    string
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
	newID    func() string
}

type ManagerOption func(*Manager)

// WithIDSource replaces the jti generator. Used to make issuance reproducible.
func WithIDSource(next func() string) ManagerOption {
	return func(m *Manager) {
		if next != nil {
			m.newID = next
		}
	}
}

func NewManager(cfg config.AuthConfig, opts ...ManagerOption) (*Manager, error) {
	key, err := loadSigningKey(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.JWTIssuer == "" {
		return nil, errors.New("auth: issuer is required")
	}
	if cfg.JWTAudience == "" {
		return nil, errors.New("auth: audience is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("auth: leeway must not be negative")
	}

	m := &Manager{
		key:      key,
		keyID:    cfg.JWTKeyID,
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      cfg.TokenTTL,
		leeway:   cfg.Leeway,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }

/* ===================== ISSUE ===================== */

// Issue signs claims for identity. The token is valid on [now, now+ttl).
// Timestamps are carried at second precision.
func (m *Manager) Issue(now time.Time, identity StoredIdentity, claims ClaimSet) (Token, error) {
	if identity.ID <= 0 {
		return Token{}, fmt.Errorf("%w: id must be positive", ErrInvalidIdentity)
	}
	if want := strconv.FormatInt(identity.ID, 10); claims.Subject != want {
		return Token{}, fmt.Errorf("%w: subject %q does not match identity %s", ErrClaimConflict, claims.Subject, want)
	}

	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(iat.Add(m.ttl))
	epoch := claims.PasswordEpoch

	wire := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   claims.Subject,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  iat,
			ExpiresAt: exp,
			ID:        m.newID(),
		},
		PasswordEpoch: &epoch,
	}
	if len(claims.Extra) > 0 {
		wire.Extra = maps.Clone(claims.Extra)
	}

	t := jwt.NewWithClaims(m.key.method, wire)
	if m.keyID != "" {
		t.Header[headerKeyID] = m.keyID
	}
	raw, err := t.SignedString(m.key.sign)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}

	return Token{
		Raw:       raw,
		ID:        wire.ID,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}, nil
}

/* ===================== VERIFY ===================== */

// Identity is the authenticated principal recovered from a valid token.
type Identity struct {
	UserID        int64
	Subject       string
	PasswordEpoch int64
	Extra         map[string]string
	TokenID       string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Claims returns the application claims carried by the token.
func (id Identity) Claims() ClaimSet {
	return ClaimSet{
		Subject:       id.Subject,
		PasswordEpoch: id.PasswordEpoch,
		Extra:         maps.Clone(id.Extra),
	}
}

// Verify checks signature, algorithm, issuer, audience and lifetime of raw
// at instant now. Every failure wraps ErrTokenInvalid.
func (m *Manager) Verify(raw string, now time.Time) (Identity, error) {
	if raw == "" || len(raw) > MaxTokenLength {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, jwt.ErrTokenMalformed)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.key.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(m.leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, m.keyFunc)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	// The parser only checks iat when present.
	if claims.IssuedAt == nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, jwt.ErrTokenRequiredClaimMissing)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: %w: bad subject", ErrTokenInvalid, jwt.ErrTokenInvalidSubject)
	}
	if claims.PasswordEpoch == nil {
		return Identity{}, fmt.Errorf("%w: %w: %s", ErrTokenInvalid, jwt.ErrTokenRequiredClaimMissing, ClaimPasswordEpoch)
	}

	return Identity{
		UserID:        userID,
		Subject:       claims.Subject,
		PasswordEpoch: *claims.PasswordEpoch,
		Extra:         claims.Extra,
		TokenID:       claims.ID,
		IssuedAt:      claims.IssuedAt.Time,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != m.key.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
	}
	if m.keyID != "" {
		if kid, _ := t.Header[headerKeyID].(string); kid != m.keyID {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
	}
	return m.key.verify, nil
}

// verifySafely is Verify for untrusted request input. A panic anywhere below
// is reported as an invalid token.
func (m *Manager) verifySafely(raw string, now time.Time) (id Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			id = Identity{}
			err = fmt.Errorf("%w: %w: %v", ErrTokenInvalid, jwt.ErrTokenMalformed, r)
		}
	}()
	return m.Verify(raw, now)
}

// Rejection reasons reported by rejectionReason.
const (
	ReasonExpired   = "expired"
	ReasonSignature = "signature"
	ReasonMalformed = "malformed"
	ReasonClaims    = "claims"
)

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	default:
		return ReasonClaims
	}
}
