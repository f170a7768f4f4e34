package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT claim set accepted from both trusted issuers.
//
// The subject identifies the principal. The role claim is optional: the
// external identity provider does not embed roles, in which case the resolver
// falls back to a profile-store lookup. A role carried in a verified token
// takes precedence over the profile store.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
