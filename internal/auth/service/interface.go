// Package service provides technical services for authentication: bearer
// token verification against the trusted issuers and audit log signing.
package service

import (
	authDomain "github.com/allisson/credvault/internal/auth/domain"
)

// TokenVerifier validates a bearer token against a single trusted issuer.
//
// Verify returns the token's claims only after the signature checked out.
// Implementations never return claims from an unverified token.
type TokenVerifier interface {
	// Verify validates the raw token string. Returns ErrTokenExpired for a
	// correctly signed but expired token and ErrInvalidToken for anything
	// else that fails verification.
	Verify(rawToken string) (*authDomain.Claims, error)

	// Issuer names the trusted issuer this verifier checks against.
	Issuer() string
}

// AuditSigner signs and verifies audit log entries so tampering with the
// persisted trail is detectable.
type AuditSigner interface {
	// Sign generates an HMAC signature over the canonical form of the entry.
	Sign(key []byte, log *authDomain.AuditLog) ([]byte, error)

	// Verify checks the entry's signature. Returns nil when valid.
	Verify(key []byte, log *authDomain.AuditLog) error
}
