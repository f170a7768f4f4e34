package http

import (
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authUseCase "github.com/allisson/credvault/internal/auth/usecase"
	"github.com/allisson/credvault/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit trail queries.
type AuditLogHandler struct {
	auditLogUseCase authUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler.
func NewAuditLogHandler(
	auditLogUseCase authUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// auditLogResponse is the JSON representation of one audit log entry.
// The signature is base64 encoded by the standard JSON []byte handling.
type auditLogResponse struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"request_id"`
	PrincipalID string         `json:"principal_id"`
	Action      string         `json:"action"`
	Resource    string         `json:"resource"`
	Decision    string         `json:"decision"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Signature   []byte         `json:"signature"`
	CreatedAt   time.Time      `json:"created_at"`
}

type auditLogListResponse struct {
	AuditLogs []auditLogResponse `json:"audit_logs"`
}

// ListHandler retrieves audit logs with pagination and optional time-range
// filtering, newest first.
//
// GET /v1/audit-logs?offset=0&limit=50&created_at_from=...&created_at_to=...
//
// Restricted by routing to admin and auditor roles. Timestamps are RFC3339
// and both range boundaries are inclusive.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var createdAtFrom *time.Time
	if fromStr := c.Query("created_at_from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid created_at_from format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)"),
				h.logger)
			return
		}
		utcTime := parsed.UTC()
		createdAtFrom = &utcTime
	}

	var createdAtTo *time.Time
	if toStr := c.Query("created_at_to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid created_at_to format: must be RFC3339 (e.g., 2026-02-14T23:59:59Z)"),
				h.logger)
			return
		}
		utcTime := parsed.UTC()
		createdAtTo = &utcTime
	}

	if createdAtFrom != nil && createdAtTo != nil && createdAtFrom.After(*createdAtTo) {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("created_at_from must be before or equal to created_at_to"),
			h.logger)
		return
	}

	auditLogs, err := h.auditLogUseCase.List(c.Request.Context(), offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapAuditLogsToListResponse(auditLogs))
}

func mapAuditLogsToListResponse(auditLogs []*authDomain.AuditLog) auditLogListResponse {
	response := auditLogListResponse{AuditLogs: make([]auditLogResponse, 0, len(auditLogs))}
	for _, log := range auditLogs {
		response.AuditLogs = append(response.AuditLogs, auditLogResponse{
			ID:          log.ID.String(),
			RequestID:   log.RequestID.String(),
			PrincipalID: log.PrincipalID,
			Action:      log.Action,
			Resource:    log.Resource,
			Decision:    log.Decision,
			Metadata:    log.Metadata,
			Signature:   log.Signature,
			CreatedAt:   log.CreatedAt,
		})
	}
	return response
}
