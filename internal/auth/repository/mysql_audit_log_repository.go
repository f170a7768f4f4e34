package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// MySQLAuditLogRepository implements AuditLog persistence for MySQL.
// UUIDs are stored as BINARY(16) and the signature as a BLOB.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL AuditLog repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

// Create inserts a new audit log entry.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, auditLog *authDomain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	var metadataJSON []byte
	var err error

	if auditLog.Metadata != nil {
		metadataJSON, err = json.Marshal(auditLog.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	query := `INSERT INTO audit_logs (id, request_id, principal_id, action, resource, decision, metadata, signature, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		auditLog.ID[:],
		auditLog.RequestID[:],
		auditLog.PrincipalID,
		auditLog.Action,
		auditLog.Resource,
		auditLog.Decision,
		metadataJSON,
		auditLog.Signature,
		auditLog.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// List retrieves audit logs ordered by created_at descending (newest first)
// with pagination and optional inclusive time-range filtering.
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authDomain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	var sb strings.Builder
	sb.WriteString(`SELECT id, request_id, principal_id, action, resource, decision, metadata, signature, created_at
			  FROM audit_logs`)

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 2)
	if createdAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *createdAtFrom)
	}
	if createdAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *createdAtTo)
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	auditLogs := make([]*authDomain.AuditLog, 0)
	for rows.Next() {
		var auditLog authDomain.AuditLog
		var idBytes, requestIDBytes, metadataJSON []byte

		err := rows.Scan(
			&idBytes,
			&requestIDBytes,
			&auditLog.PrincipalID,
			&auditLog.Action,
			&auditLog.Resource,
			&auditLog.Decision,
			&metadataJSON,
			&auditLog.Signature,
			&auditLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		if auditLog.ID, err = bytesToUUID(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse audit log id")
		}
		if auditLog.RequestID, err = bytesToUUID(requestIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse audit log request id")
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &auditLog.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit log metadata")
			}
		}

		auditLogs = append(auditLogs, &auditLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return auditLogs, nil
}
