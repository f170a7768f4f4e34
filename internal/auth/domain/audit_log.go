package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records an access decision for compliance and security monitoring.
// Captures the principal, the action taken, and the credential record it
// targeted. Entries are signed so tampering with the trail is detectable.
type AuditLog struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	PrincipalID string
	Action      string
	Resource    string
	Decision    string
	Metadata    map[string]any
	Signature   []byte
	CreatedAt   time.Time
}

// Audit decisions.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)
