// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/credvault/internal/auth/http"
	userHTTP "github.com/allisson/credvault/internal/user/http"
	vaultHTTP "github.com/allisson/credvault/internal/vault/http"
)

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// RouterConfig carries the handlers and optional middlewares wired into the
// API router. Nil middlewares are skipped.
type RouterConfig struct {
	CredentialHandler *vaultHTTP.CredentialHandler
	StreamHandler     *vaultHTTP.StreamHandler
	UserHandler       *userHTTP.UserHandler
	AuditLogHandler   *authHTTP.AuditLogHandler

	AuthMiddleware      gin.HandlerFunc
	RateLimitMiddleware gin.HandlerFunc
	MetricsMiddleware   gin.HandlerFunc

	CORSEnabled      bool
	CORSAllowOrigins string
}

// NewServer creates a new HTTP server. The router is assembled separately via
// SetupRouter once the handlers exist.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the Gin router and registers all API routes.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.MetricsMiddleware != nil {
		router.Use(cfg.MetricsMiddleware)
	}

	// Health endpoints stay outside authentication.
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.Use(cfg.AuthMiddleware)
	if cfg.RateLimitMiddleware != nil {
		v1.Use(cfg.RateLimitMiddleware)
	}

	if cfg.CredentialHandler != nil {
		v1.POST("/credentials", cfg.CredentialHandler.CreateHandler)
		v1.GET("/credentials", cfg.CredentialHandler.ListHandler)
		v1.GET("/credentials/:id", cfg.CredentialHandler.GetHandler)
		v1.PATCH("/credentials/:id", cfg.CredentialHandler.UpdateHandler)
		v1.DELETE("/credentials/:id", cfg.CredentialHandler.DeleteHandler)
	}

	if cfg.StreamHandler != nil {
		// The authentication middleware accepts the access_token query
		// parameter here because EventSource clients cannot set headers.
		v1.GET("/credentials/stream", cfg.StreamHandler.StatusStreamHandler)
	}

	if cfg.UserHandler != nil {
		v1.POST("/users",
			authHTTP.RequireRoles(s.logger, "admin"),
			cfg.UserHandler.RegisterUserHandler,
		)
	}

	if cfg.AuditLogHandler != nil {
		v1.GET("/audit-logs",
			authHTTP.RequireRoles(s.logger, "admin", "auditor"),
			cfg.AuditLogHandler.ListHandler,
		)
	}

	s.router = router
}

// GetHandler returns the underlying handler, for tests that drive the router
// without binding a socket.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking the
// database connection.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	status := http.StatusOK
	overall := "ready"

	if s.db == nil {
		components["database"] = "error"
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error("readiness database ping failed", slog.Any("error", err))
			components["database"] = "error"
			status = http.StatusServiceUnavailable
			overall = "not_ready"
		} else {
			components["database"] = "ok"
		}
	}

	c.JSON(status, gin.H{"status": overall, "components": components})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not initialized: call SetupRouter first")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
