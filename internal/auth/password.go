package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

const (
	DefaultArgon2Time    = 3
	DefaultArgon2Memory  = 64 * 1024 // KiB
	DefaultArgon2Threads = 2
	DefaultArgon2KeyLen  = 32
	DefaultSaltLength    = 16
)

// Bounds for parameters read back out of a stored hash.
const (
	MaxBcryptCost   = 16
	maxArgon2Time   = 16
	maxArgon2Memory = 256 * 1024
	minArgon2KeyLen = 16
	maxArgon2KeyLen = 128
	minSaltLength   = 8
	maxSaltLength   = 64
)

var errPasswordEmpty = errors.New("auth: password is empty")

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
}

// PasswordHasher produces self-describing salted hashes and verifies
// plaintexts against them in constant time. Verify understands bcrypt and
// argon2id hashes whatever algorithm new hashes are produced with.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon      argon2Params
	saltLength int
}

type HasherOption func(*PasswordHasher)

// WithAlgorithm selects the algorithm used by Hash. Unknown values are ignored.
func WithAlgorithm(alg string) HasherOption {
	return func(h *PasswordHasher) {
		switch alg {
		case AlgorithmBcrypt, AlgorithmArgon2id:
			h.algorithm = alg
		}
	}
}

func WithBcryptCost(cost int) HasherOption {
	return func(h *PasswordHasher) {
		if cost >= bcrypt.MinCost && cost <= MaxBcryptCost {
			h.bcryptCost = cost
		}
	}
}

// WithArgon2Params overrides time, memory (KiB) and parallelism for new argon2id hashes.
func WithArgon2Params(time, memory uint32, threads uint8) HasherOption {
	return func(h *PasswordHasher) {
		if time > 0 {
			h.argon.time = time
		}
		if memory > 0 {
			h.argon.memory = memory
		}
		if threads > 0 {
			h.argon.threads = threads
		}
	}
}

func NewPasswordHasher(opts ...HasherOption) *PasswordHasher {
	h := &PasswordHasher{
		algorithm:  AlgorithmBcrypt,
		bcryptCost: bcrypt.DefaultCost,
		argon: argon2Params{
			time:    DefaultArgon2Time,
			memory:  DefaultArgon2Memory,
			threads: DefaultArgon2Threads,
			keyLen:  DefaultArgon2KeyLen,
		},
		saltLength: DefaultSaltLength,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Hash returns an encoded hash carrying its algorithm, parameters and a fresh
// random salt, so two calls on the same input never return the same string.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errPasswordEmpty
	}
	if h.algorithm == AlgorithmArgon2id {
		return h.hashArgon2id(plain)
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("auth: bcrypt hash failed: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plain matches encoded. Malformed or unsupported
// hashes yield false.
func (h *PasswordHasher) Verify(plain, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(plain, encoded)
	case isBcryptHash(encoded):
		cost, err := bcrypt.Cost([]byte(encoded))
		if err != nil || cost > MaxBcryptCost {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
	default:
		return false
	}
}

func isBcryptHash(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func (h *PasswordHasher) hashArgon2id(plain string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("auth: failed to generate salt: %w", err)
	}
	p := h.argon
	key := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, p.keyLen)

	// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2id(plain, encoded string) bool {
	p, salt, want, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, p.keyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func decodeArgon2id(encoded string) (argon2Params, []byte, []byte, error) {
	invalid := errors.New("auth: invalid argon2id hash")

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != AlgorithmArgon2id {
		return argon2Params{}, nil, nil, invalid
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argon2Params{}, nil, nil, invalid
	}

	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argon2Params{}, nil, nil, invalid
	}
	if p.time == 0 || p.time > maxArgon2Time ||
		p.memory == 0 || p.memory > maxArgon2Memory ||
		p.threads == 0 || p.memory < 8*uint32(p.threads) {
		return argon2Params{}, nil, nil, invalid
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minSaltLength || len(salt) > maxSaltLength {
		return argon2Params{}, nil, nil, invalid
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < minArgon2KeyLen || len(key) > maxArgon2KeyLen {
		return argon2Params{}, nil, nil, invalid
	}
	p.keyLen = uint32(len(key))

	return p, salt, key, nil
}
