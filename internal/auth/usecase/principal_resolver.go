package usecase

import (
	"context"
	"log/slog"
	"time"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authService "github.com/allisson/credvault/internal/auth/service"
)

// principalResolver implements PrincipalResolver over an ordered verifier
// chain and a profile-store fallback.
type principalResolver struct {
	chain         *authService.VerifierChain
	profiles      ProfileRepository
	lookupTimeout time.Duration
	logger        *slog.Logger
}

// NewPrincipalResolver creates a PrincipalResolver.
//
// The chain is tried in issuer order. lookupTimeout bounds the profile-store
// role lookup; a slow or unavailable profile store degrades the request to
// least privilege instead of failing it.
func NewPrincipalResolver(
	chain *authService.VerifierChain,
	profiles ProfileRepository,
	lookupTimeout time.Duration,
	logger *slog.Logger,
) PrincipalResolver {
	return &principalResolver{
		chain:         chain,
		profiles:      profiles,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
}

// Resolve verifies the token and returns the authenticated principal.
//
// Role precedence: a role claim inside a verified token wins; otherwise a
// single profile-store lookup runs with a bounded timeout; on lookup failure,
// timeout, or no matching row, the role defaults to user. Defaulting only
// happens after signature verification succeeded, so unverified claims are
// never partially trusted.
func (r *principalResolver) Resolve(
	ctx context.Context,
	rawToken string,
) (*authDomain.Principal, error) {
	if rawToken == "" {
		return nil, authDomain.ErrMissingToken
	}

	claims, err := r.chain.Verify(rawToken)
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, authDomain.ErrInvalidToken
	}

	principal := &authDomain.Principal{
		ID:    claims.Subject,
		Email: claims.Email,
	}

	if role, ok := authDomain.ParseRole(claims.Role); ok {
		principal.Role = role
		return principal, nil
	}

	principal.Role = r.lookupRole(ctx, claims.Subject)
	return principal, nil
}

// lookupRole fetches the role from the profile store with a bounded timeout.
// Any failure resolves to the least-privilege role.
func (r *principalResolver) lookupRole(ctx context.Context, principalID string) authDomain.Role {
	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	role, err := r.profiles.GetRole(lookupCtx, principalID)
	if err != nil {
		r.logger.Warn("profile role lookup failed, defaulting to least privilege",
			slog.String("principal_id", principalID),
			slog.Any("error", err))
		return authDomain.RoleUser
	}

	if _, ok := authDomain.ParseRole(string(role)); !ok {
		r.logger.Warn("profile store returned unknown role, defaulting to least privilege",
			slog.String("principal_id", principalID),
			slog.String("role", string(role)))
		return authDomain.RoleUser
	}

	return role
}
