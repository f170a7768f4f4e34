package usecase

import (
	"context"
	"time"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/metrics"
)

// principalResolverWithMetrics decorates PrincipalResolver with metrics
// instrumentation.
type principalResolverWithMetrics struct {
	next    PrincipalResolver
	metrics metrics.BusinessMetrics
}

// NewPrincipalResolverWithMetrics wraps a PrincipalResolver with metrics
// recording.
func NewPrincipalResolverWithMetrics(
	resolver PrincipalResolver,
	m metrics.BusinessMetrics,
) PrincipalResolver {
	return &principalResolverWithMetrics{
		next:    resolver,
		metrics: m,
	}
}

// Resolve records metrics for principal resolution.
func (p *principalResolverWithMetrics) Resolve(
	ctx context.Context,
	rawToken string,
) (*authDomain.Principal, error) {
	start := time.Now()
	principal, err := p.next.Resolve(ctx, rawToken)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "auth", "resolve_principal", status)
	p.metrics.RecordDuration(ctx, "auth", "resolve_principal", time.Since(start), status)

	return principal, err
}
