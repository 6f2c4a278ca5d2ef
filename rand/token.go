package rand

import (
	"crypto/rand"
	"encoding/base64"
)

// TokenGenerator mints opaque URL-safe tokens from the OS entropy source.
type TokenGenerator struct {
	size int
}

// NewTokenGenerator creates a token generator producing tokens from size
// random bytes.
func NewTokenGenerator(size int) *TokenGenerator {
	if size <= 0 {
		size = 64
	}
	return &TokenGenerator{size: size}
}

// Token returns a new random token.
func (g *TokenGenerator) Token() (string, error) {
	b := make([]byte, g.size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
