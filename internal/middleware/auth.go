package middleware

import (
	"net/http"
	"strings"

	"support-chat-service/internal/model"
	"support-chat-service/pkg/jwtutil"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header
// and stores the acting user in the request context.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAccessError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAccessError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAccessError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store user info in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("tenant_id", claims.TenantID)
		c.Set("user_role", claims.Role)
		c.Set("actor", &model.User{
			ID:       claims.UserID,
			Email:    claims.Email,
			Role:     claims.Role,
			TenantID: claims.TenantID,
		})

		log.Debug("Request authenticated",
			zap.Uint("user_id", claims.UserID),
			zap.Uint("tenant_id", claims.TenantID),
			zap.String("role", claims.Role))

		return next(c)
	}
}

// Actor returns the authenticated user stored by AuthMiddleware, or nil.
func Actor(c echo.Context) *model.User {
	actor, ok := c.Get("actor").(*model.User)
	if !ok {
		return nil
	}
	return actor
}
