package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
)

func setupRateLimitRouter(rps float64, burst int, principal *authDomain.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if principal != nil {
			c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		}
		c.Next()
	})
	router.Use(RateLimitMiddleware(rps, burst, slog.Default()))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests within burst", func(t *testing.T) {
		principal := &authDomain.Principal{ID: "u1", Role: authDomain.RoleUser}
		router := setupRateLimitRouter(1, 3, principal)

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("rejects requests over the limit with retry-after", func(t *testing.T) {
		principal := &authDomain.Principal{ID: "u2", Role: authDomain.RoleUser}
		router := setupRateLimitRouter(0.1, 1, principal)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("principals have independent limiters", func(t *testing.T) {
		first := &authDomain.Principal{ID: "u3", Role: authDomain.RoleUser}
		second := &authDomain.Principal{ID: "u4", Role: authDomain.RoleUser}

		routerFirst := setupRateLimitRouter(0.1, 1, first)
		w := httptest.NewRecorder()
		routerFirst.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		w = httptest.NewRecorder()
		routerFirst.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		routerSecond := setupRateLimitRouter(0.1, 1, second)
		w = httptest.NewRecorder()
		routerSecond.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing principal yields 401", func(t *testing.T) {
		router := setupRateLimitRouter(1, 1, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
