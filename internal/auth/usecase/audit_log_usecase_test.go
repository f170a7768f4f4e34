package usecase

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authService "github.com/allisson/credvault/internal/auth/service"
)

type fakeAuditLogRepository struct {
	mu      sync.Mutex
	entries []*authDomain.AuditLog
}

func (f *fakeAuditLogRepository) Create(_ context.Context, auditLog *authDomain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditLog)
	return nil
}

func (f *fakeAuditLogRepository) List(
	_ context.Context,
	offset, limit int,
	_, _ *time.Time,
) ([]*authDomain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if offset >= len(f.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.entries) {
		end = len(f.entries)
	}
	return append([]*authDomain.AuditLog(nil), f.entries[offset:end]...), nil
}

func (f *fakeAuditLogRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func newAuditUseCase(t *testing.T, repo AuditLogRepository, bufferSize int) (AuditLogUseCase, []byte) {
	t.Helper()

	signingKey := make([]byte, 32)
	_, err := rand.Read(signingKey)
	require.NoError(t, err)

	uc := NewAuditLogUseCase(repo, authService.NewAuditSigner(), signingKey, bufferSize, slog.Default())
	return uc, signingKey
}

func testEvent(action string) AuditEvent {
	return AuditEvent{
		RequestID:   uuid.Must(uuid.NewV7()),
		PrincipalID: "u1",
		Action:      action,
		Resource:    "credential:1",
		Decision:    authDomain.DecisionAllowed,
	}
}

func TestAuditLogUseCase_Record(t *testing.T) {
	t.Run("persists signed entries asynchronously", func(t *testing.T) {
		repo := &fakeAuditLogRepository{}
		uc, signingKey := newAuditUseCase(t, repo, 16)

		ctx, cancel := context.WithCancel(context.Background())
		go uc.Start(ctx)

		uc.Record(context.Background(), testEvent("credential.read"))
		uc.Record(context.Background(), testEvent("credential.update"))

		assert.Eventually(t, func() bool {
			return repo.count() == 2
		}, time.Second, 10*time.Millisecond)

		cancel()
		uc.Close()

		entries, err := uc.List(context.Background(), 0, 50, nil, nil)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		signer := authService.NewAuditSigner()
		for _, entry := range entries {
			assert.NoError(t, signer.Verify(signingKey, entry))
			assert.Equal(t, "u1", entry.PrincipalID)
			assert.False(t, entry.CreatedAt.IsZero())
		}
	})

	t.Run("drains buffered entries on shutdown", func(t *testing.T) {
		repo := &fakeAuditLogRepository{}
		uc, _ := newAuditUseCase(t, repo, 16)

		// Entries recorded before the worker starts sit in the buffer.
		uc.Record(context.Background(), testEvent("credential.read"))
		uc.Record(context.Background(), testEvent("credential.delete"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		go uc.Start(ctx)
		uc.Close()

		assert.Equal(t, 2, repo.count())
	})

	t.Run("drops entries when the buffer is full without blocking", func(t *testing.T) {
		repo := &fakeAuditLogRepository{}
		uc, _ := newAuditUseCase(t, repo, 1)

		// No worker running: the second entry cannot fit.
		done := make(chan struct{})
		go func() {
			uc.Record(context.Background(), testEvent("credential.read"))
			uc.Record(context.Background(), testEvent("credential.read"))
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Record blocked on a full buffer")
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		go uc.Start(ctx)
		uc.Close()

		assert.Equal(t, 1, repo.count())
	})
}

func TestAuditLogUseCase_Close(t *testing.T) {
	t.Run("returns immediately when the worker never started", func(t *testing.T) {
		uc, _ := newAuditUseCase(t, &fakeAuditLogRepository{}, 4)

		done := make(chan struct{})
		go func() {
			uc.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Close blocked without a started worker")
		}
	})
}

func TestAuditLogUseCase_VerifyBatch(t *testing.T) {
	setup := func(t *testing.T) (AuditLogUseCase, *fakeAuditLogRepository, []byte) {
		t.Helper()
		repo := &fakeAuditLogRepository{}
		uc, signingKey := newAuditUseCase(t, repo, 16)

		ctx, cancel := context.WithCancel(context.Background())
		go uc.Start(ctx)
		uc.Record(context.Background(), testEvent("credential.read"))
		uc.Record(context.Background(), testEvent("credential.delete"))
		assert.Eventually(t, func() bool { return repo.count() == 2 }, time.Second, 10*time.Millisecond)
		cancel()
		uc.Close()

		return uc, repo, signingKey
	}

	t.Run("all signatures valid", func(t *testing.T) {
		uc, _, _ := setup(t)

		report, err := uc.VerifyBatch(context.Background(), time.Now().Add(-time.Hour), time.Now())

		require.NoError(t, err)
		assert.Equal(t, int64(2), report.TotalChecked)
		assert.Equal(t, int64(2), report.ValidCount)
		assert.Equal(t, int64(0), report.InvalidCount)
		assert.Equal(t, int64(0), report.UnsignedCount)
	})

	t.Run("tampered entry is reported invalid", func(t *testing.T) {
		uc, repo, _ := setup(t)

		repo.mu.Lock()
		repo.entries[0].Action = "credential.create"
		tamperedID := repo.entries[0].ID
		repo.mu.Unlock()

		report, err := uc.VerifyBatch(context.Background(), time.Now().Add(-time.Hour), time.Now())

		require.NoError(t, err)
		assert.Equal(t, int64(1), report.InvalidCount)
		assert.Equal(t, int64(1), report.ValidCount)
		require.Len(t, report.InvalidLogs, 1)
		assert.Equal(t, tamperedID, report.InvalidLogs[0])
	})

	t.Run("entries without signature count as unsigned", func(t *testing.T) {
		uc, repo, _ := setup(t)

		repo.mu.Lock()
		repo.entries[1].Signature = nil
		repo.mu.Unlock()

		report, err := uc.VerifyBatch(context.Background(), time.Now().Add(-time.Hour), time.Now())

		require.NoError(t, err)
		assert.Equal(t, int64(1), report.UnsignedCount)
		assert.Equal(t, int64(1), report.SignedCount)
		assert.Equal(t, int64(0), report.InvalidCount)
	})
}
