package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authHTTP "github.com/allisson/credvault/internal/auth/http"
	authUseCase "github.com/allisson/credvault/internal/auth/usecase"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

type stubCredentialUseCase struct {
	credential *vaultDomain.Credential
	list       []*vaultDomain.Credential
	summary    map[vaultDomain.CredentialStatus]int64
	err        error
}

func (s *stubCredentialUseCase) Create(
	_ context.Context,
	principal *authDomain.Principal,
	input vaultUseCase.CreateCredentialInput,
) (*vaultDomain.Credential, error) {
	if s.err != nil {
		return nil, s.err
	}
	credential := *s.credential
	credential.OwnerID = principal.ID
	credential.Name = input.Name
	return &credential, nil
}

func (s *stubCredentialUseCase) Get(
	_ context.Context,
	_ *authDomain.Principal,
	_ uuid.UUID,
) (*vaultDomain.Credential, error) {
	return s.credential, s.err
}

func (s *stubCredentialUseCase) GetMetadata(
	_ context.Context,
	_ *authDomain.Principal,
	_ uuid.UUID,
) (*vaultDomain.Credential, error) {
	return s.credential, s.err
}

func (s *stubCredentialUseCase) Update(
	_ context.Context,
	_ *authDomain.Principal,
	_ uuid.UUID,
	_ vaultUseCase.UpdateCredentialInput,
) (*vaultDomain.Credential, error) {
	return s.credential, s.err
}

func (s *stubCredentialUseCase) Delete(_ context.Context, _ *authDomain.Principal, _ uuid.UUID) error {
	return s.err
}

func (s *stubCredentialUseCase) List(
	_ context.Context,
	_ *authDomain.Principal,
	_, _ int,
) ([]*vaultDomain.Credential, error) {
	return s.list, s.err
}

func (s *stubCredentialUseCase) StatusSummary(
	_ context.Context,
	_ *authDomain.Principal,
) (map[vaultDomain.CredentialStatus]int64, error) {
	return s.summary, s.err
}

func (s *stubCredentialUseCase) Reencrypt(_ context.Context, _, _ int) (*vaultUseCase.ReencryptReport, error) {
	return &vaultUseCase.ReencryptReport{}, s.err
}

type recordingAuditUseCase struct {
	mu     sync.Mutex
	events []authUseCase.AuditEvent
}

func (r *recordingAuditUseCase) Record(_ context.Context, event authUseCase.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAuditUseCase) List(
	_ context.Context,
	_, _ int,
	_, _ *time.Time,
) ([]*authDomain.AuditLog, error) {
	return nil, nil
}

func (r *recordingAuditUseCase) VerifyBatch(
	_ context.Context,
	_, _ time.Time,
) (*authUseCase.VerificationReport, error) {
	return &authUseCase.VerificationReport{}, nil
}

func (r *recordingAuditUseCase) Start(_ context.Context) {}
func (r *recordingAuditUseCase) Close()                  {}

func (r *recordingAuditUseCase) recorded() []authUseCase.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]authUseCase.AuditEvent(nil), r.events...)
}

func testStoredCredential() *vaultDomain.Credential {
	now := time.Now().UTC()
	return &vaultDomain.Credential{
		ID:         uuid.Must(uuid.NewV7()),
		OwnerID:    "owner-1",
		Type:       vaultDomain.CredentialTypePassword,
		Name:       "prod-db-root",
		Host:       "db.internal",
		Port:       5432,
		Username:   "root",
		Ciphertext: []byte("ciphertext"),
		Nonce:      []byte("nonce1234567"),
		KeyVersion: 1,
		Status:     vaultDomain.CredentialStatusActive,
		Plaintext:  []byte("p@ssW0rd!"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// injectPrincipal simulates the authentication middleware for handler tests.
func injectPrincipal(principal *authDomain.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal != nil {
			c.Request = c.Request.WithContext(authHTTP.WithPrincipal(c.Request.Context(), principal))
		}
		c.Next()
	}
}

func setupCredentialRouter(
	uc vaultUseCase.CredentialUseCase,
	audit authUseCase.AuditLogUseCase,
	principal *authDomain.Principal,
) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewCredentialHandler(uc, audit, logger)

	router := gin.New()
	router.Use(injectPrincipal(principal))
	router.POST("/v1/credentials", handler.CreateHandler)
	router.GET("/v1/credentials", handler.ListHandler)
	router.GET("/v1/credentials/:id", handler.GetHandler)
	router.PATCH("/v1/credentials/:id", handler.UpdateHandler)
	router.DELETE("/v1/credentials/:id", handler.DeleteHandler)
	return router
}

func TestCredentialHandler_CreateHandler(t *testing.T) {
	principal := &authDomain.Principal{ID: "owner-1", Role: authDomain.RoleUser}

	t.Run("success", func(t *testing.T) {
		audit := &recordingAuditUseCase{}
		router := setupCredentialRouter(&stubCredentialUseCase{credential: testStoredCredential()}, audit, principal)

		body, _ := json.Marshal(map[string]any{
			"type":   "password",
			"name":   "prod-db-root",
			"secret": base64.StdEncoding.EncodeToString([]byte("p@ssW0rd!")),
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/credentials", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "owner-1", resp["owner_id"])
		assert.NotContains(t, resp, "secret")
		assert.NotContains(t, w.Body.String(), "p@ssW0rd!")

		events := audit.recorded()
		require.Len(t, events, 1)
		assert.Equal(t, "credential.create", events[0].Action)
		assert.Equal(t, authDomain.DecisionAllowed, events[0].Decision)
	})

	t.Run("invalid base64 secret", func(t *testing.T) {
		router := setupCredentialRouter(&stubCredentialUseCase{}, &recordingAuditUseCase{}, principal)

		body, _ := json.Marshal(map[string]any{
			"type":   "password",
			"name":   "x",
			"secret": "not base64!!",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/credentials", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("missing principal", func(t *testing.T) {
		router := setupCredentialRouter(&stubCredentialUseCase{}, &recordingAuditUseCase{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/credentials", bytes.NewReader([]byte("{}")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCredentialHandler_GetHandler(t *testing.T) {
	principal := &authDomain.Principal{ID: "owner-1", Role: authDomain.RoleUser}

	t.Run("returns decrypted secret", func(t *testing.T) {
		credential := testStoredCredential()
		audit := &recordingAuditUseCase{}
		router := setupCredentialRouter(&stubCredentialUseCase{credential: credential}, audit, principal)

		req := httptest.NewRequest(http.MethodGet, "/v1/credentials/"+credential.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("p@ssW0rd!")), resp["secret"])

		events := audit.recorded()
		require.Len(t, events, 1)
		assert.Equal(t, "credential.read", events[0].Action)
		assert.Equal(t, "credential:"+credential.ID.String(), events[0].Resource)
	})

	t.Run("forbidden is audited as denied", func(t *testing.T) {
		audit := &recordingAuditUseCase{}
		router := setupCredentialRouter(&stubCredentialUseCase{err: vaultDomain.ErrAccessDenied}, audit, principal)

		req := httptest.NewRequest(http.MethodGet, "/v1/credentials/"+uuid.Must(uuid.NewV7()).String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), "owner")

		events := audit.recorded()
		require.Len(t, events, 1)
		assert.Equal(t, authDomain.DecisionDenied, events[0].Decision)
	})

	t.Run("not found carries no record detail", func(t *testing.T) {
		router := setupCredentialRouter(
			&stubCredentialUseCase{err: vaultDomain.ErrCredentialNotFound},
			&recordingAuditUseCase{},
			principal,
		)

		req := httptest.NewRequest(http.MethodGet, "/v1/credentials/"+uuid.Must(uuid.NewV7()).String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", jsonField(t, w.Body.Bytes(), "error"))
	})

	t.Run("invalid id", func(t *testing.T) {
		router := setupCredentialRouter(&stubCredentialUseCase{}, &recordingAuditUseCase{}, principal)

		req := httptest.NewRequest(http.MethodGet, "/v1/credentials/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestCredentialHandler_DeleteHandler(t *testing.T) {
	principal := &authDomain.Principal{ID: "owner-1", Role: authDomain.RoleUser}
	audit := &recordingAuditUseCase{}
	router := setupCredentialRouter(&stubCredentialUseCase{}, audit, principal)

	req := httptest.NewRequest(http.MethodDelete, "/v1/credentials/"+uuid.Must(uuid.NewV7()).String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	events := audit.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "credential.delete", events[0].Action)
}

func TestCredentialHandler_ListHandler(t *testing.T) {
	principal := &authDomain.Principal{ID: "owner-1", Role: authDomain.RoleUser}
	credential := testStoredCredential()
	router := setupCredentialRouter(
		&stubCredentialUseCase{list: []*vaultDomain.Credential{credential}},
		&recordingAuditUseCase{},
		principal,
	)

	req := httptest.NewRequest(http.MethodGet, "/v1/credentials?offset=0&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.NotContains(t, w.Body.String(), "p@ssW0rd!")

	var resp struct {
		Credentials []map[string]any `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Credentials, 1)
	assert.Equal(t, credential.Name, resp.Credentials[0]["name"])
}

func jsonField(t *testing.T, body []byte, field string) any {
	t.Helper()
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	return parsed[field]
}
