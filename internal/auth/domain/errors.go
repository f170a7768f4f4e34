package domain

import (
	"github.com/allisson/credvault/internal/errors"
)

// Authentication errors. All wrap the unauthorized sentinel so the HTTP layer
// maps them to 401 without inspecting which verification step failed.
var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = errors.Wrap(errors.ErrUnauthorized, "missing bearer token")

	// ErrInvalidToken indicates the token failed verification against every
	// trusted issuer, or its claims are unusable.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrTokenExpired indicates the token verified but is past its expiry.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "token expired")
)

// ErrSignatureInvalid indicates an audit log entry's signature does not match
// its content, meaning the persisted trail was tampered with.
var ErrSignatureInvalid = errors.Wrap(errors.ErrEncryption, "audit log signature invalid")
