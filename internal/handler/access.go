package handler

import (
	"net/http"

	"support-chat-service/internal/model"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// authorizeTenant runs the single tenant-access predicate every
// tenant-scoped endpoint must use. A denial reveals nothing about
// whether the tenant's resources exist.
func authorizeTenant(c echo.Context, actor *model.User, tenantID uint) bool {
	allowed, err := resolver.CanAccess(actor, tenantID)
	if err != nil {
		logger.FromContext(c).Error("Tenant access check failed",
			zap.Uint("tenant_id", tenantID),
			zap.Error(err))
		return false
	}
	if !allowed {
		prometheus.RecordAccessError("tenant_access_denied")
		logger.FromContext(c).Warn("Tenant access denied",
			zap.Uint("user_id", actor.ID),
			zap.String("role", actor.Role),
			zap.Uint("tenant_id", tenantID))
	}
	return allowed
}

// hideResource answers an ID-scoped request for a resource outside the
// actor's tenant scope. The response is byte-identical to a lookup
// miss, so probing IDs reveals nothing about what exists.
func hideResource(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": resource + " not found"})
}
