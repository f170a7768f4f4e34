package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
)

var (
	internalSecret = []byte("internal-issuer-secret-for-tests")
	externalSecret = []byte("external-issuer-secret-for-tests")
)

func signToken(t *testing.T, secret []byte, claims *authDomain.Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func validClaims(role string) *authDomain.Claims {
	return &authDomain.Claims{
		Email: "u1@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestHMACVerifier_Verify(t *testing.T) {
	verifier := NewHMACVerifier("internal", internalSecret)

	t.Run("valid token", func(t *testing.T) {
		rawToken := signToken(t, internalSecret, validClaims("admin"))

		claims, err := verifier.Verify(rawToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
		assert.Equal(t, "u1@example.com", claims.Email)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		rawToken := signToken(t, []byte("some other secret, 32 bytes long"), validClaims("admin"))

		_, err := verifier.Verify(rawToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.NotErrorIs(t, err, authDomain.ErrTokenExpired)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims("user")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		rawToken := signToken(t, internalSecret, claims)

		_, err := verifier.Verify(rawToken)
		assert.ErrorIs(t, err, authDomain.ErrTokenExpired)
	})

	t.Run("missing expiry is rejected", func(t *testing.T) {
		claims := validClaims("user")
		claims.ExpiresAt = nil
		rawToken := signToken(t, internalSecret, claims)

		_, err := verifier.Verify(rawToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("admin"))
		rawToken, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(rawToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := verifier.Verify("not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestVerifierChain_Verify(t *testing.T) {
	chain := NewVerifierChain(
		NewHMACVerifier("internal", internalSecret),
		NewHMACVerifier("external", externalSecret),
	)

	t.Run("accepts token from the first issuer", func(t *testing.T) {
		rawToken := signToken(t, internalSecret, validClaims("manager"))

		claims, err := chain.Verify(rawToken)
		require.NoError(t, err)
		assert.Equal(t, "manager", claims.Role)
	})

	t.Run("falls through to the second issuer", func(t *testing.T) {
		rawToken := signToken(t, externalSecret, validClaims(""))

		claims, err := chain.Verify(rawToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
		assert.Empty(t, claims.Role)
	})

	t.Run("rejects token signed by an unknown issuer", func(t *testing.T) {
		rawToken := signToken(t, []byte("unknown issuer secret, 32 bytes!"), validClaims("admin"))

		_, err := chain.Verify(rawToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired token short-circuits the chain", func(t *testing.T) {
		claims := validClaims("user")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		rawToken := signToken(t, internalSecret, claims)

		_, err := chain.Verify(rawToken)
		assert.ErrorIs(t, err, authDomain.ErrTokenExpired)
	})
}
