package service

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// hmacVerifier validates HS256-signed tokens for one issuer.
//
// The algorithm is pinned to HS256: a token claiming any other method,
// including "none", is rejected before its signature is inspected.
type hmacVerifier struct {
	issuer string
	secret []byte
}

// NewHMACVerifier creates a TokenVerifier for the given issuer and its
// shared signing secret.
func NewHMACVerifier(issuer string, secret []byte) TokenVerifier {
	return &hmacVerifier{issuer: issuer, secret: secret}
}

// Issuer names the trusted issuer this verifier checks against.
func (v *hmacVerifier) Issuer() string {
	return v.issuer
}

// Verify validates the raw token string against this issuer's secret.
func (v *hmacVerifier) Verify(rawToken string) (*authDomain.Claims, error) {
	claims := &authDomain.Claims{}

	token, err := jwt.ParseWithClaims(
		rawToken,
		claims,
		func(token *jwt.Token) (any, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, authDomain.ErrTokenExpired
		}
		return nil, apperrors.Wrap(authDomain.ErrInvalidToken, err.Error())
	}
	if !token.Valid {
		return nil, authDomain.ErrInvalidToken
	}

	return claims, nil
}

// VerifierChain tries an ordered list of issuer verifiers and accepts the
// first success.
//
// The order encodes trust precedence: the internal issuer is tried before the
// external identity provider. Adding a third issuer is a list insertion, not
// new control flow. An expired token from any issuer short-circuits the chain
// because a later issuer cannot make an expired token fresh.
type VerifierChain struct {
	verifiers []TokenVerifier
}

// NewVerifierChain creates a VerifierChain over the given verifiers, tried in
// order.
func NewVerifierChain(verifiers ...TokenVerifier) *VerifierChain {
	return &VerifierChain{verifiers: verifiers}
}

// Verify runs the token through each verifier in order and returns the claims
// from the first that accepts it.
func (c *VerifierChain) Verify(rawToken string) (*authDomain.Claims, error) {
	var lastErr error
	for _, verifier := range c.verifiers {
		claims, err := verifier.Verify(rawToken)
		if err == nil {
			return claims, nil
		}
		if errors.Is(err, authDomain.ErrTokenExpired) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = authDomain.ErrInvalidToken
	}
	return nil, lastErr
}
