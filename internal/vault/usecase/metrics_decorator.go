package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/metrics"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// credentialUseCaseWithMetrics decorates CredentialUseCase with metrics instrumentation.
type credentialUseCaseWithMetrics struct {
	next    CredentialUseCase
	metrics metrics.BusinessMetrics
}

// NewCredentialUseCaseWithMetrics wraps a CredentialUseCase with metrics recording.
func NewCredentialUseCaseWithMetrics(useCase CredentialUseCase, m metrics.BusinessMetrics) CredentialUseCase {
	return &credentialUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (d *credentialUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.RecordOperation(ctx, "vault", operation, status)
	d.metrics.RecordDuration(ctx, "vault", operation, time.Since(start), status)
}

// Create records metrics for credential creation operations.
func (d *credentialUseCaseWithMetrics) Create(
	ctx context.Context,
	principal *authDomain.Principal,
	input CreateCredentialInput,
) (*vaultDomain.Credential, error) {
	start := time.Now()
	credential, err := d.next.Create(ctx, principal, input)
	d.record(ctx, "credential_create", start, err)
	return credential, err
}

// Get records metrics for credential read operations.
func (d *credentialUseCaseWithMetrics) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*vaultDomain.Credential, error) {
	start := time.Now()
	credential, err := d.next.Get(ctx, principal, id)
	d.record(ctx, "credential_get", start, err)
	return credential, err
}

// GetMetadata records metrics for credential metadata read operations.
func (d *credentialUseCaseWithMetrics) GetMetadata(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*vaultDomain.Credential, error) {
	start := time.Now()
	credential, err := d.next.GetMetadata(ctx, principal, id)
	d.record(ctx, "credential_get_metadata", start, err)
	return credential, err
}

// Update records metrics for credential update operations.
func (d *credentialUseCaseWithMetrics) Update(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
	input UpdateCredentialInput,
) (*vaultDomain.Credential, error) {
	start := time.Now()
	credential, err := d.next.Update(ctx, principal, id, input)
	d.record(ctx, "credential_update", start, err)
	return credential, err
}

// Delete records metrics for credential deletion operations.
func (d *credentialUseCaseWithMetrics) Delete(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) error {
	start := time.Now()
	err := d.next.Delete(ctx, principal, id)
	d.record(ctx, "credential_delete", start, err)
	return err
}

// List records metrics for credential list operations.
func (d *credentialUseCaseWithMetrics) List(
	ctx context.Context,
	principal *authDomain.Principal,
	offset, limit int,
) ([]*vaultDomain.Credential, error) {
	start := time.Now()
	credentials, err := d.next.List(ctx, principal, offset, limit)
	d.record(ctx, "credential_list", start, err)
	return credentials, err
}

// StatusSummary records metrics for status summary queries.
func (d *credentialUseCaseWithMetrics) StatusSummary(
	ctx context.Context,
	principal *authDomain.Principal,
) (map[vaultDomain.CredentialStatus]int64, error) {
	start := time.Now()
	summary, err := d.next.StatusSummary(ctx, principal)
	d.record(ctx, "credential_status_summary", start, err)
	return summary, err
}

// Reencrypt records metrics for re-encryption migration runs.
func (d *credentialUseCaseWithMetrics) Reencrypt(
	ctx context.Context,
	batchSize, workers int,
) (*ReencryptReport, error) {
	start := time.Now()
	report, err := d.next.Reencrypt(ctx, batchSize, workers)
	d.record(ctx, "credential_reencrypt", start, err)
	return report, err
}
