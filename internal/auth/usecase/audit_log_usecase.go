package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authService "github.com/allisson/credvault/internal/auth/service"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// persistTimeout bounds a single audit log insert so a slow database cannot
// stall the worker indefinitely.
const persistTimeout = 5 * time.Second

// auditLogUseCase implements AuditLogUseCase with an asynchronous buffered
// worker.
//
// The request path only signs the entry and pushes it into a channel; the
// worker persists entries in the background. When the buffer is full the
// entry is dropped and a warning logged. Losing an audit entry under extreme
// load is preferable to blocking credential access on audit I/O.
type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	signer       authService.AuditSigner
	signingKey   []byte
	logger       *slog.Logger

	buffer  chan *authDomain.AuditLog
	done    chan struct{}
	started atomic.Bool
	once    sync.Once
}

// NewAuditLogUseCase creates an AuditLogUseCase with the given buffer size.
// The signing key is the master key; the signer derives a dedicated HMAC key
// from it.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	signer authService.AuditSigner,
	signingKey []byte,
	bufferSize int,
	logger *slog.Logger,
) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		signer:       signer,
		signingKey:   signingKey,
		logger:       logger,
		buffer:       make(chan *authDomain.AuditLog, bufferSize),
		done:         make(chan struct{}),
	}
}

// Record signs the event and enqueues it for asynchronous persistence. Never
// blocks and never fails the caller.
func (a *auditLogUseCase) Record(_ context.Context, event AuditEvent) {
	auditLog := &authDomain.AuditLog{
		ID:          uuid.Must(uuid.NewV7()),
		RequestID:   event.RequestID,
		PrincipalID: event.PrincipalID,
		Action:      event.Action,
		Resource:    event.Resource,
		Decision:    event.Decision,
		Metadata:    event.Metadata,
		CreatedAt:   time.Now().UTC(),
	}

	signature, err := a.signer.Sign(a.signingKey, auditLog)
	if err != nil {
		a.logger.Error("failed to sign audit log entry",
			slog.String("action", auditLog.Action),
			slog.Any("error", err))
		return
	}
	auditLog.Signature = signature

	select {
	case a.buffer <- auditLog:
	default:
		a.logger.Warn("audit buffer full, dropping entry",
			slog.String("action", auditLog.Action),
			slog.String("principal_id", auditLog.PrincipalID))
	}
}

// List retrieves audit log entries, newest first.
func (a *auditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authDomain.AuditLog, error) {
	auditLogs, err := a.auditLogRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return auditLogs, nil
}

// Start persists buffered entries until the context is canceled, then drains
// whatever remains in the buffer before returning.
func (a *auditLogUseCase) Start(ctx context.Context) {
	a.started.Store(true)
	defer close(a.done)

	for {
		select {
		case auditLog := <-a.buffer:
			a.persist(auditLog)
		case <-ctx.Done():
			for {
				select {
				case auditLog := <-a.buffer:
					a.persist(auditLog)
				default:
					return
				}
			}
		}
	}
}

// Close waits for the worker to finish draining. Call after canceling the
// context passed to Start. A no-op when the worker was never started, so CLI
// commands that only read the trail can shut down cleanly.
func (a *auditLogUseCase) Close() {
	a.once.Do(func() {
		if !a.started.Load() {
			return
		}
		<-a.done
	})
}

// VerifyBatch re-checks the HMAC signature of every entry in the inclusive
// time range and reports the outcome. Entries persisted before signing was
// enabled count as unsigned, not invalid.
func (a *auditLogUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*VerificationReport, error) {
	const pageSize = 500

	report := &VerificationReport{}
	for offset := 0; ; offset += pageSize {
		auditLogs, err := a.auditLogRepo.List(ctx, offset, pageSize, &start, &end)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list audit logs for verification")
		}

		for _, auditLog := range auditLogs {
			report.TotalChecked++
			if len(auditLog.Signature) == 0 {
				report.UnsignedCount++
				continue
			}
			report.SignedCount++
			if err := a.signer.Verify(a.signingKey, auditLog); err != nil {
				report.InvalidCount++
				report.InvalidLogs = append(report.InvalidLogs, auditLog.ID)
				continue
			}
			report.ValidCount++
		}

		if len(auditLogs) < pageSize {
			break
		}
	}

	return report, nil
}

func (a *auditLogUseCase) persist(auditLog *authDomain.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := a.auditLogRepo.Create(ctx, auditLog); err != nil {
		a.logger.Error("failed to persist audit log entry",
			slog.String("audit_log_id", auditLog.ID.String()),
			slog.Any("error", err))
	}
}
