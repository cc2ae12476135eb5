package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("s3cret", "insights")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		token, err := v.SignToken(UserClaims{UID: "user-9", Email: "u9@example.com", Verified: true}, time.Hour)
		require.NoError(t, err)

		claims, err := v.VerifyToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "user-9", claims.UID)
		assert.Equal(t, "u9@example.com", claims.Email)
		assert.True(t, claims.Verified)
		assert.Equal(t, "jwt", claims.Provider)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := v.SignToken(UserClaims{UID: "user-9"}, -time.Hour)
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTVerifier("different", "insights")
		require.NoError(t, err)
		token, err := other.SignToken(UserClaims{UID: "user-9"}, time.Hour)
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewJWTVerifier("s3cret", "someone-else")
		require.NoError(t, err)
		token, err := other.SignToken(UserClaims{UID: "user-9"}, time.Hour)
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := v.SignToken(UserClaims{}, time.Hour)
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, token)
		assert.Error(t, err)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Subject:   "user-9",
			Issuer:    "insights",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, signed)
		assert.Error(t, err)
	})
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier("", "")
	assert.Error(t, err)
}
