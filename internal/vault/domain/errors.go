package domain

import (
	"github.com/allisson/credvault/internal/errors"
)

// Domain-specific errors for credential operations.
var (
	// ErrCredentialNotFound indicates the requested credential does not exist
	// within the caller's visibility scope.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrCredentialAlreadyExists indicates the owner already has a credential
	// with the same name.
	ErrCredentialAlreadyExists = errors.Wrap(errors.ErrConflict, "credential already exists")

	// ErrAccessDenied indicates the principal's role grants no access to the
	// credential and the principal is not its owner.
	ErrAccessDenied = errors.Wrap(errors.ErrForbidden, "access to credential denied")

	// ErrInvalidCredentialType indicates the type is not part of the closed set.
	ErrInvalidCredentialType = errors.Wrap(errors.ErrInvalidInput, "invalid credential type")

	// ErrInvalidCredentialStatus indicates the status is not part of the closed set.
	ErrInvalidCredentialStatus = errors.Wrap(errors.ErrInvalidInput, "invalid credential status")
)
