// Package bearer validates the operator credential carried on the second
// administrative surface (site listing, creation, deletion).
//
// The credential is a signed JWT rather than a shared literal: the reference
// behavior of accepting any bearer value is a gap, not a contract, so the
// operator surface requires a token signed with the configured secret and
// scoped "operator".
package bearer

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/entry-nets/sitehub"
)

const operatorScope = "operator"

// ErrInvalidBearer is returned for every bearer validation failure. The
// caller cannot distinguish a bad signature from an expired token.
var ErrInvalidBearer = &sitehub.Error{
	Code: sitehub.EUnauthorized,
	Msg:  "invalid operator credential",
}

// OperatorClaims is the claim set carried by operator tokens.
type OperatorClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Validator validates operator bearer tokens against a shared secret.
type Validator struct {
	secret []byte
}

// NewValidator creates a Validator for the given signing secret.
func NewValidator(secret []byte) *Validator {
	return &Validator{secret: secret}
}

// Validate parses and verifies token. HS256 only; expiry enforced by the
// parser; the scope claim must be exactly "operator".
func (v *Validator) Validate(token string) error {
	if len(v.secret) == 0 || token == "" {
		return ErrInvalidBearer
	}

	claims := &OperatorClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidBearer
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidBearer
	}
	if subtle.ConstantTimeCompare([]byte(claims.Scope), []byte(operatorScope)) != 1 {
		return ErrInvalidBearer
	}
	return nil
}

// Token signs a fresh operator token. Used by operations tooling and tests.
func Token(secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &OperatorClaims{
		Scope: operatorScope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
