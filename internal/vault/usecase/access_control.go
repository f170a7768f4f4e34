package usecase

import (
	authDomain "github.com/allisson/credvault/internal/auth/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// roleAccessControl implements AccessControl with the role-or-ownership rule.
//
// Auditors read the audit trail, not credential payloads: they get no special
// treatment here and fall through to the ownership check like regular users.
type roleAccessControl struct{}

// NewAccessControl creates the standard vault access control.
func NewAccessControl() AccessControl {
	return &roleAccessControl{}
}

func (a *roleAccessControl) allowed(principal *authDomain.Principal, credential *vaultDomain.Credential) bool {
	if principal == nil || credential == nil {
		return false
	}
	if principal.Role.Elevated() {
		return true
	}
	return principal.Owns(credential.OwnerID)
}

// CanRead reports whether the principal may read the record.
func (a *roleAccessControl) CanRead(principal *authDomain.Principal, credential *vaultDomain.Credential) bool {
	return a.allowed(principal, credential)
}

// CanWrite reports whether the principal may modify the record.
func (a *roleAccessControl) CanWrite(principal *authDomain.Principal, credential *vaultDomain.Credential) bool {
	return a.allowed(principal, credential)
}

// CanDelete reports whether the principal may delete the record.
func (a *roleAccessControl) CanDelete(principal *authDomain.Principal, credential *vaultDomain.Credential) bool {
	return a.allowed(principal, credential)
}

// Scope returns the repository filter for list and aggregate queries:
// everything for elevated roles, owned records only for everyone else.
func (a *roleAccessControl) Scope(principal *authDomain.Principal) Scope {
	if principal != nil && principal.Role.Elevated() {
		return Scope{All: true}
	}
	ownerID := ""
	if principal != nil {
		ownerID = principal.ID
	}
	return Scope{OwnerID: ownerID}
}
