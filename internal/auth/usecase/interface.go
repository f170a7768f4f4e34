// Package usecase implements business logic orchestration for authentication:
// principal resolution from bearer tokens and the signed audit trail.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
)

// ProfileRepository looks up a principal's role in the profile store.
//
// Used as the fallback when a verified token omits the role claim. The lookup
// may block on I/O; callers bound it with a timeout and degrade to least
// privilege on any failure.
type ProfileRepository interface {
	// GetRole returns the role stored for the principal. Returns
	// errors.ErrNotFound when no profile row exists.
	GetRole(ctx context.Context, principalID string) (authDomain.Role, error)
}

// AuditLogRepository defines persistence operations for audit log entries.
type AuditLogRepository interface {
	// Create stores a new audit log entry.
	Create(ctx context.Context, auditLog *authDomain.AuditLog) error

	// List retrieves entries ordered by created_at descending with pagination
	// and optional inclusive time-range filtering (nil means no bound).
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*authDomain.AuditLog, error)
}

// PrincipalResolver turns a raw bearer token into an authenticated Principal.
//
// Resolution guarantees that every returned Principal carries a role from the
// closed set: a token role is adopted when present and valid, otherwise a
// bounded profile-store lookup runs, and on any lookup failure the role
// defaults to user. The default is fail-safe, never fail-open: an unknown
// role can only lower privilege.
type PrincipalResolver interface {
	// Resolve verifies the token and returns the authenticated principal.
	// Returns ErrMissingToken, ErrInvalidToken, or ErrTokenExpired on
	// authentication failure; never returns a principal without a role.
	Resolve(ctx context.Context, rawToken string) (*authDomain.Principal, error)
}

// AuditEvent is one access decision to be recorded in the audit trail.
type AuditEvent struct {
	RequestID   uuid.UUID
	PrincipalID string
	Action      string
	Resource    string
	Decision    string
	Metadata    map[string]any
}

// VerificationReport summarizes a batch audit trail integrity check.
type VerificationReport struct {
	TotalChecked  int64
	SignedCount   int64
	UnsignedCount int64
	ValidCount    int64
	InvalidCount  int64
	InvalidLogs   []uuid.UUID
}

// AuditLogUseCase records access decisions asynchronously and serves audit
// trail queries.
//
// Record is fire-and-forget: it never blocks the request path and never
// fails it. Entries are signed before buffering and dropped (with a warning)
// when the buffer is full.
type AuditLogUseCase interface {
	// Record enqueues an event for asynchronous persistence.
	Record(ctx context.Context, event AuditEvent)

	// List retrieves audit log entries, newest first.
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*authDomain.AuditLog, error)

	// VerifyBatch re-checks entry signatures in the inclusive time range,
	// detecting tampering with the persisted trail.
	VerifyBatch(ctx context.Context, start, end time.Time) (*VerificationReport, error)

	// Start runs the persistence worker until the context is canceled.
	Start(ctx context.Context)

	// Close waits for the worker to drain after the Start context is
	// canceled.
	Close()
}
