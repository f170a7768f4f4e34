// Package http provides HTTP handlers for credential management operations.
// Handlers run after the authentication middleware, take the principal from
// the request context, and record every access decision in the audit trail.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authHTTP "github.com/allisson/credvault/internal/auth/http"
	authUseCase "github.com/allisson/credvault/internal/auth/usecase"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/httputil"
	"github.com/allisson/credvault/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// CredentialHandler handles HTTP requests for credential management.
type CredentialHandler struct {
	credentialUseCase vaultUseCase.CredentialUseCase
	auditLogUseCase   authUseCase.AuditLogUseCase
	logger            *slog.Logger
}

// NewCredentialHandler creates a new credential handler.
func NewCredentialHandler(
	credentialUseCase vaultUseCase.CredentialUseCase,
	auditLogUseCase authUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *CredentialHandler {
	return &CredentialHandler{
		credentialUseCase: credentialUseCase,
		auditLogUseCase:   auditLogUseCase,
		logger:            logger,
	}
}

// principalFrom extracts the authenticated principal placed in the request
// context by the authentication middleware.
func principalFrom(c *gin.Context, logger *slog.Logger) (*authDomain.Principal, bool) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
		return nil, false
	}
	return principal, true
}

// requestID returns the request correlation id set by the requestid
// middleware, or a fresh one when the middleware is absent.
func requestID(c *gin.Context) uuid.UUID {
	if id, err := uuid.Parse(requestid.Get(c)); err == nil {
		return id
	}
	return uuid.Must(uuid.NewV7())
}

// audit records one access decision. Best effort: the audit sink never
// blocks or fails the request.
func (h *CredentialHandler) audit(c *gin.Context, principal *authDomain.Principal, action, resource string, err error) {
	decision := authDomain.DecisionAllowed
	if apperrors.Is(err, apperrors.ErrForbidden) {
		decision = authDomain.DecisionDenied
	} else if err != nil {
		// Failures other than authorization denials are not access
		// decisions and are not audited here.
		return
	}

	h.auditLogUseCase.Record(c.Request.Context(), authUseCase.AuditEvent{
		RequestID:   requestID(c),
		PrincipalID: principal.ID,
		Action:      action,
		Resource:    resource,
		Decision:    decision,
		Metadata:    map[string]any{"role": string(principal.Role)},
	})
}

// CreateHandler creates a new credential owned by the caller.
//
// POST /v1/credentials
func (h *CredentialHandler) CreateHandler(c *gin.Context) {
	principal, ok := principalFrom(c, h.logger)
	if !ok {
		return
	}

	var req dto.CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	secret, err := base64.StdEncoding.DecodeString(req.Secret)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 secret: %w", err), h.logger)
		return
	}

	credential, err := h.credentialUseCase.Create(c.Request.Context(), principal, dto.ToCreateCredentialInput(req, secret))
	h.audit(c, principal, "credential.create", "credential", err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCredentialResponse(credential))
}

// GetHandler retrieves a credential with its decrypted secret.
//
// GET /v1/credentials/:id
//
// The only endpoint that decrypts. The plaintext goes straight into the
// response and is zeroed afterwards; it is never logged or cached.
func (h *CredentialHandler) GetHandler(c *gin.Context) {
	principal, ok := principalFrom(c, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid credential id"), h.logger)
		return
	}

	credential, err := h.credentialUseCase.Get(c.Request.Context(), principal, id)
	h.audit(c, principal, "credential.read", "credential:"+id.String(), err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(credential.Plaintext)

	c.JSON(http.StatusOK, dto.ToCredentialSecretResponse(credential))
}

// UpdateHandler modifies credential metadata and optionally replaces the
// secret payload.
//
// PATCH /v1/credentials/:id
func (h *CredentialHandler) UpdateHandler(c *gin.Context) {
	principal, ok := principalFrom(c, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid credential id"), h.logger)
		return
	}

	var req dto.UpdateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var secret []byte
	if req.Secret != nil {
		secret, err = base64.StdEncoding.DecodeString(*req.Secret)
		if err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 secret: %w", err), h.logger)
			return
		}
	}

	credential, err := h.credentialUseCase.Update(c.Request.Context(), principal, id, dto.ToUpdateCredentialInput(req, secret))
	h.audit(c, principal, "credential.update", "credential:"+id.String(), err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToCredentialResponse(credential))
}

// DeleteHandler removes a credential permanently.
//
// DELETE /v1/credentials/:id
func (h *CredentialHandler) DeleteHandler(c *gin.Context) {
	principal, ok := principalFrom(c, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid credential id"), h.logger)
		return
	}

	err = h.credentialUseCase.Delete(c.Request.Context(), principal, id)
	h.audit(c, principal, "credential.delete", "credential:"+id.String(), err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListHandler retrieves visible credentials with pagination, metadata only.
//
// GET /v1/credentials?offset=0&limit=50
//
// The visibility scope is applied in the repository query: regular users get
// their own records, elevated roles get everything.
func (h *CredentialHandler) ListHandler(c *gin.Context) {
	principal, ok := principalFrom(c, h.logger)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	credentials, err := h.credentialUseCase.List(c.Request.Context(), principal, offset, limit)
	h.audit(c, principal, "credential.list", "credential", err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToCredentialListResponse(credentials))
}
