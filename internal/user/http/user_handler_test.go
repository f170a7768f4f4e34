package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/user/domain"
	"github.com/allisson/credvault/internal/user/usecase"
)

type stubUserUseCase struct {
	user *domain.User
	err  error
}

func (s *stubUserUseCase) RegisterUser(_ context.Context, input usecase.RegisterUserInput) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user := *s.user
	user.Email = input.Email
	return &user, nil
}

func (s *stubUserUseCase) GetUserByEmail(_ context.Context, _ string) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUserUseCase) GetUserByID(_ context.Context, _ uuid.UUID) (*domain.User, error) {
	return s.user, s.err
}

func setupUserRouter(uc usecase.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewUserHandler(uc, logger)

	router := gin.New()
	router.POST("/v1/users", handler.RegisterUserHandler)
	return router
}

func TestUserHandler_RegisterUserHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc := &stubUserUseCase{
			user: &domain.User{
				ID:   uuid.Must(uuid.NewV7()),
				Name: "Jane Doe",
				Role: authDomain.RoleUser,
			},
		}
		router := setupUserRouter(uc)

		body, _ := json.Marshal(map[string]string{
			"name":     "Jane Doe",
			"email":    "jane@example.com",
			"password": "SecurePass123!",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "jane@example.com", resp["email"])
		assert.Equal(t, "user", resp["role"])
		assert.NotContains(t, resp, "password")
	})

	t.Run("malformed json", func(t *testing.T) {
		router := setupUserRouter(&stubUserUseCase{})

		req := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		router := setupUserRouter(&stubUserUseCase{})

		body, _ := json.Marshal(map[string]string{
			"name":     "Jane Doe",
			"email":    "jane@example.com",
			"password": "short",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("duplicate email returns conflict", func(t *testing.T) {
		router := setupUserRouter(&stubUserUseCase{err: domain.ErrUserAlreadyExists})

		body, _ := json.Marshal(map[string]string{
			"name":     "Jane Doe",
			"email":    "jane@example.com",
			"password": "SecurePass123!",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
