package auth

import (
	"errors"
	"fmt"
	"strings"

	"profile-api/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const minRSABits = 2048

// signingKey is the process-wide key pair. It is built once at startup and
// never mutated.
type signingKey struct {
	method jwt.SigningMethod
	sign   any
	verify any
}

func loadSigningKey(cfg config.AuthConfig) (signingKey, error) {
	switch strings.ToUpper(strings.TrimSpace(cfg.JWTAlgorithm)) {
	case "", jwt.SigningMethodHS256.Alg():
		if cfg.JWTSecret == "" {
			return signingKey{}, ErrMissingSigningKey
		}
		if len(cfg.JWTSecret) < config.MinSecretLength {
			return signingKey{}, fmt.Errorf("%w: need at least %d bytes", ErrWeakSigningKey, config.MinSecretLength)
		}
		secret := []byte(cfg.JWTSecret)
		return signingKey{method: jwt.SigningMethodHS256, sign: secret, verify: secret}, nil

	case jwt.SigningMethodRS256.Alg():
		if strings.TrimSpace(cfg.JWTPrivateKeyPEM) == "" {
			return signingKey{}, ErrMissingSigningKey
		}
		priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.JWTPrivateKeyPEM))
		if err != nil {
			return signingKey{}, fmt.Errorf("auth: parse private key: %w", err)
		}
		if priv.N.BitLen() < minRSABits {
			return signingKey{}, fmt.Errorf("%w: need at least %d bits", ErrWeakSigningKey, minRSABits)
		}
		pub := &priv.PublicKey
		if strings.TrimSpace(cfg.JWTPublicKeyPEM) != "" {
			pub, err = jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKeyPEM))
			if err != nil {
				return signingKey{}, fmt.Errorf("auth: parse public key: %w", err)
			}
			if !pub.Equal(&priv.PublicKey) {
				return signingKey{}, errors.New("auth: public key does not match private key")
			}
		}
		return signingKey{method: jwt.SigningMethodRS256, sign: priv, verify: pub}, nil

	default:
		return signingKey{}, fmt.Errorf("auth: unsupported signing algorithm %q", cfg.JWTAlgorithm)
	}
}
