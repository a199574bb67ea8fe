package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func fastBcrypt() *PasswordHasher {
	return NewPasswordHasher(WithBcryptCost(bcrypt.MinCost))
}

func fastArgon2id() *PasswordHasher {
	return NewPasswordHasher(WithAlgorithm(AlgorithmArgon2id), WithArgon2Params(1, 1024, 1))
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	hashers := map[string]*PasswordHasher{
		AlgorithmBcrypt:   fastBcrypt(),
		AlgorithmArgon2id: fastArgon2id(),
	}
	passwords := []string{"secret123", "p", "pässwörd with spaces", strings.Repeat("x", 64)}

	for name, h := range hashers {
		for _, p := range passwords {
			encoded, err := h.Hash(p)
			if err != nil {
				t.Fatalf("%s: hash %q: %v", name, p, err)
			}
			if !h.Verify(p, encoded) {
				t.Fatalf("%s: expected %q to verify", name, p)
			}
		}
	}
}

func TestPasswordHasher_SaltedPerCall(t *testing.T) {
	for name, h := range map[string]*PasswordHasher{AlgorithmBcrypt: fastBcrypt(), AlgorithmArgon2id: fastArgon2id()} {
		a, err := h.Hash("secret123")
		if err != nil {
			t.Fatalf("%s: hash: %v", name, err)
		}
		b, err := h.Hash("secret123")
		if err != nil {
			t.Fatalf("%s: hash: %v", name, err)
		}
		if a == b {
			t.Fatalf("%s: expected different hashes for the same input", name)
		}
	}
}

func TestPasswordHasher_RejectsOtherPasswords(t *testing.T) {
	for name, h := range map[string]*PasswordHasher{AlgorithmBcrypt: fastBcrypt(), AlgorithmArgon2id: fastArgon2id()} {
		encoded, err := h.Hash("secret123")
		if err != nil {
			t.Fatalf("%s: hash: %v", name, err)
		}
		for _, other := range []string{"secret124", "Secret123", "secret12", "secret1234", ""} {
			if h.Verify(other, encoded) {
				t.Fatalf("%s: %q must not verify against hash of secret123", name, other)
			}
		}
	}
}

func TestPasswordHasher_SelfDescribingFormat(t *testing.T) {
	encoded, err := fastArgon2id().Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	// A hasher configured with different parameters still verifies it.
	if !NewPasswordHasher().Verify("secret123", encoded) {
		t.Fatalf("expected verification with parameters taken from the hash")
	}
}

func TestPasswordHasher_VerifiesBcryptRegardlessOfAlgorithm(t *testing.T) {
	encoded, err := fastBcrypt().Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !fastArgon2id().Verify("secret123", encoded) {
		t.Fatalf("argon2id-configured hasher must still verify bcrypt hashes")
	}
}

func TestPasswordHasher_MalformedHashIsFalse(t *testing.T) {
	h := fastBcrypt()
	cases := []string{
		"",
		"plaintext",
		"$2a$",
		"$2b$04$short",
		"$argon2id$",
		"$argon2id$v=19$m=1024,t=1,p=1$$",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=0$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=99999999,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$!!!",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"$scrypt$whatever",
	}
	for _, c := range cases {
		if h.Verify("secret123", c) {
			t.Fatalf("malformed hash %q must not verify", c)
		}
	}
}

func TestPasswordHasher_HashRejectsEmpty(t *testing.T) {
	if _, err := fastBcrypt().Hash(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestPasswordHasher_IgnoresInvalidOptions(t *testing.T) {
	h := NewPasswordHasher(WithAlgorithm("md5"), WithBcryptCost(1000))
	if h.algorithm != AlgorithmBcrypt {
		t.Fatalf("unexpected algorithm %q", h.algorithm)
	}
	if h.bcryptCost != bcrypt.DefaultCost {
		t.Fatalf("unexpected cost %d", h.bcryptCost)
	}
}

func FuzzPasswordVerify(f *testing.F) {
	f.Add("secret123", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA")
	f.Add("secret123", "$2a$04$abcdefghijklmnopqrstuu")
	f.Add("", "")
	f.Add("x", "$argon2id$v=19$m=4294967295,t=4294967295,p=255$AA$AA")

	h := fastBcrypt()
	f.Fuzz(func(t *testing.T, plain, encoded string) {
		// Must never panic on attacker or corruption supplied input.
		_ = h.Verify(plain, encoded)
	})
}
