package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authUseCase "github.com/allisson/credvault/internal/auth/usecase"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/httputil"
)

// AuthenticationMiddleware resolves the caller's bearer token into a
// Principal and stores it in the request context.
//
// The token is read from the Authorization header ("Bearer <token>",
// case-insensitive) or, for streaming endpoints where browsers cannot set
// headers, from the access_token query parameter. The header wins when both
// are present.
//
// Error handling:
//   - Missing token → 401 Unauthorized
//   - Invalid or expired token → 401 Unauthorized
//
// Downstream handlers retrieve the caller via GetPrincipal(); the principal
// always carries a resolved role.
func AuthenticationMiddleware(
	resolver authUseCase.PrincipalResolver,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken := extractToken(c)

		principal, err := resolver.Resolve(c.Request.Context(), rawToken)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("principal_id", principal.ID),
			slog.String("role", string(principal.Role)))

		c.Next()
	}
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the access_token query parameter. Returns "" when neither carries
// a token.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		const bearerPrefix = "bearer "
		if len(authHeader) >= len(bearerPrefix) &&
			strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			return authHeader[len(bearerPrefix):]
		}
		return ""
	}

	return c.Query("access_token")
}

// RequireRoles restricts a route to principals holding one of the given
// roles. MUST be used after AuthenticationMiddleware.
func RequireRoles(
	logger *slog.Logger,
	roles ...string,
) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok || principal == nil {
			logger.Error("role check without authenticated principal in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if _, ok := allowed[string(principal.Role)]; !ok {
			logger.Debug("authorization failed: insufficient role",
				slog.String("principal_id", principal.ID),
				slog.String("role", string(principal.Role)))
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
