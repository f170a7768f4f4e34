// Package integration provides end-to-end integration tests for the
// credential vault API. Tests run against both PostgreSQL and MySQL.
package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credvault/internal/app"
	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/config"
	cryptoUseCase "github.com/allisson/credvault/internal/crypto/usecase"
	"github.com/allisson/credvault/internal/testutil"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

const testTokenSecret = "integration-test-token-secret"

// testContext holds all dependencies and state for integration testing.
type testContext struct {
	container   *app.Container
	db          *sql.DB
	server      *httptest.Server
	keyUseCase  cryptoUseCase.KeyUseCase
	credUseCase vaultUseCase.CredentialUseCase
	dbDriver    string
}

// makeToken mints an HS256 token for the internal issuer. An empty role
// exercises the profile-store fallback path.
func makeToken(t *testing.T, subject, role string, expiresIn time.Duration) string {
	t.Helper()

	claims := &authDomain.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "internal",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testTokenSecret))
	require.NoError(t, err, "failed to sign test token")
	return token
}

// makeRequest performs an HTTP request against the test server. An empty
// token sends no Authorization header.
func (tc *testContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
	token string,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, tc.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	require.NoError(t, resp.Body.Close())

	return resp, respBody
}

// setupIntegrationTest initializes the container and API server against a
// real database, with keys initialized and the audit worker running.
func setupIntegrationTest(t *testing.T, dbDriver string) *testContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		testutil.SkipIfNoPostgres(t)
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		testutil.SkipIfNoMySQL(t)
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}
	t.Cleanup(func() { testutil.TeardownDB(t, db) })

	masterKey := make([]byte, 32)
	_, err := rand.Read(masterKey)
	require.NoError(t, err, "failed to generate master key")

	cfg := &config.Config{
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		MasterKey:            hex.EncodeToString(masterKey),
		EncryptionAlgorithm:  "aes-gcm",
		InternalTokenSecret:  testTokenSecret,
		KeyHistoryLimit:      3,
		ProfileLookupTimeout: 500 * time.Millisecond,
		StreamPushInterval:   50 * time.Millisecond,
		AuditBufferSize:      256,
	}

	container := app.NewContainer(cfg)

	ctx := context.Background()
	keyUseCase, err := container.KeyUseCase()
	require.NoError(t, err, "failed to initialize key use case")
	require.NoError(t, keyUseCase.Initialize(ctx), "failed to initialize vault keys")

	credUseCase, err := container.CredentialUseCase()
	require.NoError(t, err, "failed to initialize credential use case")

	server, err := container.HTTPServer()
	require.NoError(t, err, "failed to initialize HTTP server")

	auditLogUseCase, err := container.AuditLogUseCase()
	require.NoError(t, err, "failed to initialize audit log use case")

	workerCtx, cancel := context.WithCancel(ctx)
	go auditLogUseCase.Start(workerCtx)

	httpServer := httptest.NewServer(server.GetHandler())

	t.Cleanup(func() {
		httpServer.Close()
		cancel()
		require.NoError(t, container.Shutdown(context.Background()))
	})

	return &testContext{
		container:   container,
		db:          db,
		server:      httpServer,
		keyUseCase:  keyUseCase,
		credUseCase: credUseCase,
		dbDriver:    dbDriver,
	}
}

func TestAPIPostgreSQL(t *testing.T) {
	runAPISuite(t, "postgres")
}

func TestAPIMySQL(t *testing.T) {
	runAPISuite(t, "mysql")
}

func runAPISuite(t *testing.T, dbDriver string) {
	tc := setupIntegrationTest(t, dbDriver)

	ownerToken := makeToken(t, "owner@example.com", "user", time.Hour)
	otherToken := makeToken(t, "other@example.com", "user", time.Hour)
	adminToken := makeToken(t, "admin@example.com", "admin", time.Hour)
	auditorToken := makeToken(t, "auditor@example.com", "auditor", time.Hour)

	secret := []byte("p@ssw0rd-for-prod-db")
	secretBase64 := base64.StdEncoding.EncodeToString(secret)

	var credentialID string

	t.Run("health endpoints are public", func(t *testing.T) {
		resp, body := tc.makeRequest(t, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "healthy")

		resp, _ = tc.makeRequest(t, http.MethodGet, "/ready", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("requests without a token are rejected", func(t *testing.T) {
		resp, _ := tc.makeRequest(t, http.MethodGet, "/v1/credentials", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired tokens are rejected", func(t *testing.T) {
		expired := makeToken(t, "owner@example.com", "user", -time.Hour)
		resp, _ := tc.makeRequest(t, http.MethodGet, "/v1/credentials", nil, expired)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("create credential", func(t *testing.T) {
		reqBody := map[string]interface{}{
			"type":     "database",
			"name":     "prod-db",
			"host":     "db.internal",
			"port":     5432,
			"username": "app",
			"secret":   secretBase64,
		}

		resp, body := tc.makeRequest(t, http.MethodPost, "/v1/credentials", reqBody, ownerToken)
		require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

		var created map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &created))
		assert.Equal(t, "owner@example.com", created["owner_id"])
		assert.Equal(t, "active", created["status"])
		assert.NotContains(t, created, "secret", "create response must not echo the secret")

		credentialID = created["id"].(string)
		require.NotEmpty(t, credentialID)
	})

	t.Run("duplicate name for the same owner conflicts", func(t *testing.T) {
		reqBody := map[string]interface{}{
			"type":   "database",
			"name":   "prod-db",
			"secret": secretBase64,
		}
		resp, _ := tc.makeRequest(t, http.MethodPost, "/v1/credentials", reqBody, ownerToken)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		// A different owner may reuse the name.
		resp, _ = tc.makeRequest(t, http.MethodPost, "/v1/credentials", reqBody, otherToken)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("owner reads the secret back", func(t *testing.T) {
		resp, body := tc.makeRequest(t, http.MethodGet, "/v1/credentials/"+credentialID, nil, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, secretBase64, got["secret"])
		assert.Equal(t, "db.internal", got["host"])
	})

	t.Run("non-owner user is denied", func(t *testing.T) {
		resp, _ := tc.makeRequest(t, http.MethodGet, "/v1/credentials/"+credentialID, nil, otherToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin reads any credential", func(t *testing.T) {
		resp, body := tc.makeRequest(t, http.MethodGet, "/v1/credentials/"+credentialID, nil, adminToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, secretBase64, got["secret"])
	})

	t.Run("list shows only visible credentials without secrets", func(t *testing.T) {
		resp, body := tc.makeRequest(t, http.MethodGet, "/v1/credentials", nil, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var listing struct {
			Credentials []map[string]interface{} `json:"credentials"`
		}
		require.NoError(t, json.Unmarshal(body, &listing))
		require.Len(t, listing.Credentials, 1)
		assert.NotContains(t, listing.Credentials[0], "secret")

		// Admin sees every owner's records.
		resp, body = tc.makeRequest(t, http.MethodGet, "/v1/credentials", nil, adminToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.Unmarshal(body, &listing))
		assert.Len(t, listing.Credentials, 2)
	})

	t.Run("update credential metadata and status", func(t *testing.T) {
		reqBody := map[string]interface{}{
			"host":   "db-replica.internal",
			"status": "disabled",
		}
		resp, body := tc.makeRequest(t, http.MethodPatch, "/v1/credentials/"+credentialID, reqBody, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "db-replica.internal", got["host"])
		assert.Equal(t, "disabled", got["status"])
	})

	t.Run("rotated secret replaces the old one", func(t *testing.T) {
		newSecret := base64.StdEncoding.EncodeToString([]byte("rotated-p@ssw0rd"))
		reqBody := map[string]interface{}{"secret": newSecret}
		resp, _ := tc.makeRequest(t, http.MethodPatch, "/v1/credentials/"+credentialID, reqBody, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := tc.makeRequest(t, http.MethodGet, "/v1/credentials/"+credentialID, nil, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, newSecret, got["secret"])
	})

	t.Run("key rotation keeps old records readable", func(t *testing.T) {
		ctx := context.Background()

		report, err := tc.keyUseCase.Rotate(ctx)
		require.NoError(t, err)
		assert.Greater(t, report.NewVersion, uint(1))
		assert.NotEmpty(t, report.PendingReencryption, "existing records should be flagged stale")

		// Records encrypted under the previous version still decrypt.
		resp, body := tc.makeRequest(t, http.MethodGet, "/v1/credentials/"+credentialID, nil, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

		// Re-encryption migrates them to the current version.
		reencryptReport, err := tc.credUseCase.Reencrypt(ctx, 50, 2)
		require.NoError(t, err)
		assert.Equal(t, reencryptReport.Scanned, reencryptReport.Migrated)
		assert.GreaterOrEqual(t, reencryptReport.Migrated, int64(2))

		resp, body = tc.makeRequest(t, http.MethodGet, "/v1/credentials/"+credentialID, nil, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, float64(report.NewVersion), got["key_version"])
	})

	t.Run("user registration requires admin role", func(t *testing.T) {
		reqBody := map[string]interface{}{
			"name":     "New Operator",
			"email":    "operator@example.com",
			"password": "Sup3r$ecret!",
			"role":     "user",
		}

		resp, _ := tc.makeRequest(t, http.MethodPost, "/v1/users", reqBody, ownerToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, body := tc.makeRequest(t, http.MethodPost, "/v1/users", reqBody, adminToken)
		require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

		var created map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &created))
		assert.Equal(t, "operator@example.com", created["email"])
		assert.NotContains(t, created, "password")
	})

	t.Run("audit trail records access decisions", func(t *testing.T) {
		resp, _ := tc.makeRequest(t, http.MethodGet, "/v1/audit-logs", nil, ownerToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "regular users cannot read the trail")

		// The persistence worker is asynchronous; poll until entries land.
		require.Eventually(t, func() bool {
			resp, body := tc.makeRequest(t, http.MethodGet, "/v1/audit-logs?limit=100", nil, auditorToken)
			if resp.StatusCode != http.StatusOK {
				return false
			}
			var listing struct {
				AuditLogs []map[string]interface{} `json:"audit_logs"`
			}
			if err := json.Unmarshal(body, &listing); err != nil {
				return false
			}
			var sawDenied bool
			for _, entry := range listing.AuditLogs {
				if entry["decision"] == "denied" {
					sawDenied = true
				}
			}
			return len(listing.AuditLogs) > 0 && sawDenied
		}, 5*time.Second, 100*time.Millisecond, "audit entries should be persisted")
	})

	t.Run("delete credential", func(t *testing.T) {
		resp, _ := tc.makeRequest(t, http.MethodDelete, "/v1/credentials/"+credentialID, nil, otherToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, _ = tc.makeRequest(t, http.MethodDelete, "/v1/credentials/"+credentialID, nil, ownerToken)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = tc.makeRequest(t, http.MethodGet, "/v1/credentials/"+credentialID, nil, ownerToken)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("status stream pushes summaries", func(t *testing.T) {
		req, err := http.NewRequest(
			http.MethodGet,
			fmt.Sprintf("%s/v1/credentials/stream", tc.server.URL),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+adminToken)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req = req.WithContext(ctx)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

		buf := make([]byte, 4096)
		n, err := resp.Body.Read(buf)
		require.NoError(t, err)
		frame := string(buf[:n])
		assert.Contains(t, frame, "event: status")
		assert.Contains(t, frame, "counts")
	})
}
