package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuth(expiry time.Duration) *AuthService {
	return NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: expiry})
}

func TestAuthService_RoundTrip(t *testing.T) {
	auth := testAuth(time.Hour)

	token, err := auth.GenerateStudentToken(42)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeStudent, claims.TokenType)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthService_Rejects(t *testing.T) {
	auth := testAuth(time.Hour)

	t.Run("non positive student", func(t *testing.T) {
		_, err := auth.GenerateStudentToken(0)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := testAuth(-time.Minute).GenerateStudentToken(1)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour})
		token, err := other.GenerateStudentToken(1)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ValidateToken("not-a-jwt")
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{TokenType: TokenTypeStudent, UserID: 1})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = auth.ValidateToken(signed)
		assert.Error(t, err)
	})
}
