package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
)

type fakeResolver struct {
	principal *authDomain.Principal
	err       error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (*authDomain.Principal, error) {
	return f.principal, f.err
}

type recordedMetric struct {
	domain    string
	operation string
	status    string
}

type fakeBusinessMetrics struct {
	mu         sync.Mutex
	operations []recordedMetric
	durations  []recordedMetric
}

func (f *fakeBusinessMetrics) RecordOperation(_ context.Context, domain, operation, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations = append(f.operations, recordedMetric{domain, operation, status})
}

func (f *fakeBusinessMetrics) RecordDuration(
	_ context.Context,
	domain, operation string,
	_ time.Duration,
	status string,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, recordedMetric{domain, operation, status})
}

func TestPrincipalResolverWithMetrics(t *testing.T) {
	t.Run("records success", func(t *testing.T) {
		m := &fakeBusinessMetrics{}
		resolver := NewPrincipalResolverWithMetrics(&fakeResolver{
			principal: &authDomain.Principal{ID: "u1", Role: authDomain.RoleUser},
		}, m)

		principal, err := resolver.Resolve(context.Background(), "token")
		require.NoError(t, err)
		assert.Equal(t, "u1", principal.ID)

		require.Len(t, m.operations, 1)
		assert.Equal(t, recordedMetric{"auth", "resolve_principal", "success"}, m.operations[0])
		require.Len(t, m.durations, 1)
		assert.Equal(t, "success", m.durations[0].status)
	})

	t.Run("records error", func(t *testing.T) {
		m := &fakeBusinessMetrics{}
		resolver := NewPrincipalResolverWithMetrics(&fakeResolver{err: authDomain.ErrInvalidToken}, m)

		_, err := resolver.Resolve(context.Background(), "token")
		assert.ErrorIs(t, err, authDomain.ErrInvalidToken)

		require.Len(t, m.operations, 1)
		assert.Equal(t, "error", m.operations[0].status)
	})
}
