package bearer

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-operator-secret")

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(secret)

	token, err := Token(secret, time.Hour)
	require.NoError(t, err)
	require.NoError(t, v.Validate(token))
}

func TestValidator_Rejections(t *testing.T) {
	v := NewValidator(secret)

	t.Run("empty token", func(t *testing.T) {
		require.Equal(t, ErrInvalidBearer, v.Validate(""))
	})

	t.Run("garbage token", func(t *testing.T) {
		require.Equal(t, ErrInvalidBearer, v.Validate("any-old-string"))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := Token([]byte("some-other-secret"), time.Hour)
		require.NoError(t, err)
		require.Equal(t, ErrInvalidBearer, v.Validate(token))
	})

	t.Run("expired", func(t *testing.T) {
		token, err := Token(secret, -time.Minute)
		require.NoError(t, err)
		require.Equal(t, ErrInvalidBearer, v.Validate(token))
	})

	t.Run("wrong scope", func(t *testing.T) {
		claims := &OperatorClaims{
			Scope: "viewer",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		require.Equal(t, ErrInvalidBearer, v.Validate(token))
	})

	t.Run("unsigned algorithm", func(t *testing.T) {
		claims := &OperatorClaims{Scope: "operator"}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		require.Equal(t, ErrInvalidBearer, v.Validate(token))
	})

	t.Run("no secret configured", func(t *testing.T) {
		empty := NewValidator(nil)
		token, err := Token(secret, time.Hour)
		require.NoError(t, err)
		require.Equal(t, ErrInvalidBearer, empty.Validate(token))
	})
}
