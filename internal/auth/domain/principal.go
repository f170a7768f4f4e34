// Package domain defines the authentication and authorization domain models:
// principals, roles, token claims, and the signed audit trail of access
// decisions.
package domain

// Role classifies a principal's privilege level. The set is closed: any value
// outside it is rejected at parse time and falls back to least privilege.
type Role string

const (
	// RoleAdmin has full access to every credential record.
	RoleAdmin Role = "admin"

	// RoleManager has full access to every credential record.
	RoleManager Role = "manager"

	// RoleAuditor can review audit logs but holds no special rights over
	// credential records; record access follows the ownership rule.
	RoleAuditor Role = "auditor"

	// RoleUser can access only records it owns. Also the least-privilege
	// default when a role cannot be resolved.
	RoleUser Role = "user"
)

// ParseRole maps a string to a Role. Returns false for anything outside the
// closed set, including the empty string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleAuditor, RoleUser:
		return Role(s), true
	default:
		return "", false
	}
}

// Elevated reports whether the role grants access to records regardless of
// ownership.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleManager
}

// Principal is an authenticated caller with a resolved role.
//
// A Principal only exists after token verification succeeded; its role is
// always a member of the closed set. Components downstream of the resolver
// never need to handle a missing or unknown role.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// Owns reports whether the principal is the owner identified by ownerID.
func (p *Principal) Owns(ownerID string) bool {
	return p.ID == ownerID
}
