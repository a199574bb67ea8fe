package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names reserved by the token format. Extra claims may not use them.
const (
	ClaimSubject       = "sub"
	ClaimPasswordEpoch = "pwd_epoch"
	ClaimExtra         = "ext"
)

var reservedClaims = map[string]struct{}{
	"iss":              {},
	"sub":              {},
	"aud":              {},
	"exp":              {},
	"nbf":              {},
	"iat":              {},
	"jti":              {},
	ClaimPasswordEpoch: {},
	ClaimExtra:         {},
}

// ClaimSet is the application-level content of an access token: the subject,
// the password epoch, and a string-valued extension map.
type ClaimSet struct {
	Subject string
	// PasswordEpoch is the unix second of the last password change, or 0.
	PasswordEpoch int64
	Extra         map[string]string
}

// BuildClaims derives the base claims from identity and merges extra into
// them. A collision with a reserved claim name is an error, never an overwrite.
func BuildClaims(identity StoredIdentity, extra map[string]string) (ClaimSet, error) {
	if identity.ID <= 0 {
		return ClaimSet{}, fmt.Errorf("%w: id must be positive", ErrInvalidIdentity)
	}

	cs := ClaimSet{
		Subject:       strconv.FormatInt(identity.ID, 10),
		PasswordEpoch: PasswordEpoch(identity.PasswordChangedAt),
	}

	if len(extra) == 0 {
		return cs, nil
	}
	cs.Extra = make(map[string]string, len(extra))
	for k, v := range extra {
		if strings.TrimSpace(k) == "" {
			return ClaimSet{}, fmt.Errorf("%w: empty claim name", ErrClaimConflict)
		}
		if _, reserved := reservedClaims[k]; reserved {
			return ClaimSet{}, fmt.Errorf("%w: %q is reserved", ErrClaimConflict, k)
		}
		cs.Extra[k] = v
	}
	return cs, nil
}

// PasswordEpoch converts a password change time into the epoch marker.
func PasswordEpoch(changedAt time.Time) int64 {
	if changedAt.IsZero() {
		return 0
	}
	return changedAt.Unix()
}

// Claims is the wire shape of an access token payload.
type Claims struct {
	jwt.RegisteredClaims

	PasswordEpoch *int64            `json:"pwd_epoch,omitempty"`
	Extra         map[string]string `json:"ext,omitempty"`
}
