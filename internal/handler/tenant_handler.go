package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"support-chat-service/internal/middleware"
	"support-chat-service/internal/model"
	"support-chat-service/pkg/database"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func requireAdmin(c echo.Context) *model.User {
	actor := middleware.Actor(c)
	if actor == nil || actor.Role != model.RoleAdmin {
		return nil
	}
	return actor
}

// CreateTenant registers a new tenant. ADMIN only.
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)

	if requireAdmin(c) == nil {
		prometheus.RecordAccessError("admin_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req struct {
		Slug       string   `json:"slug"`
		Name       string   `json:"name"`
		Domain     string   `json:"domain,omitempty"`
		Namespaces []string `json:"namespaces,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Slug == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug and name are required"})
	}

	settings := datatypes.JSONMap{}
	if len(req.Namespaces) > 0 {
		namespaces := make([]interface{}, 0, len(req.Namespaces))
		for _, ns := range req.Namespaces {
			namespaces = append(namespaces, ns)
		}
		settings["namespaces"] = namespaces
	}

	tenant := model.Tenant{
		Slug:     strings.ToLower(strings.TrimSpace(req.Slug)),
		Name:     req.Name,
		Domain:   req.Domain,
		Settings: settings,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := database.GetDB().Create(&tenant).Error; err != nil {
		log.Error("Failed to create tenant", zap.String("slug", tenant.Slug), zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": "tenant creation failed, slug may already exist"})
	}

	log.Info("Tenant created", zap.Uint("tenant_id", tenant.ID), zap.String("slug", tenant.Slug))
	return c.JSON(http.StatusCreated, echo.Map{"tenant": tenant})
}

// ListTenants returns all tenants. ADMIN sees every tenant; a MANAGER
// sees their home tenant plus granted tenants; an agent sees only home.
func ListTenants(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenants []model.Tenant
	query := database.GetDB().Order("name ASC")

	switch actor.Role {
	case model.RoleAdmin:
		// no scoping
	case model.RoleManager:
		var grantedIDs []uint
		err := database.GetDB().Model(&model.ManagerTenantAccess{}).
			Where("user_id = ?", actor.ID).
			Pluck("tenant_id", &grantedIDs).Error
		if err != nil {
			log.Error("Failed to load tenant grants", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tenants"})
		}
		query = query.Where("id IN ?", append(grantedIDs, actor.TenantID))
	default:
		query = query.Where("id = ?", actor.TenantID)
	}

	if err := query.Find(&tenants).Error; err != nil {
		log.Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tenants"})
	}

	return c.JSON(http.StatusOK, tenants)
}

// GetTenant returns a single tenant the actor can access.
func GetTenant(c echo.Context) error {
	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}
	if !authorizeTenant(c, actor, uint(id)) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"tenant": tenant})
}

// DeleteTenant soft-deletes a tenant. ADMIN only.
func DeleteTenant(c echo.Context) error {
	log := logger.FromContext(c)

	if requireAdmin(c) == nil {
		prometheus.RecordAccessError("admin_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := database.GetDB().Delete(&tenant).Error; err != nil {
		log.Error("Failed to delete tenant", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	log.Info("Tenant deleted", zap.Uint("tenant_id", tenant.ID), zap.String("slug", tenant.Slug))
	return c.JSON(http.StatusOK, echo.Map{"message": "tenant deleted"})
}

// GrantTenantAccess gives a MANAGER access to an additional tenant.
// ADMIN only.
func GrantTenantAccess(c echo.Context) error {
	log := logger.FromContext(c)

	if requireAdmin(c) == nil {
		prometheus.RecordAccessError("admin_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req struct {
		UserID   uint `json:"user_id"`
		TenantID uint `json:"tenant_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.TenantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and tenant_id are required"})
	}

	var user model.User
	if result := database.GetDB().First(&user, req.UserID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if user.Role != model.RoleManager {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "grants apply to MANAGER users only"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, req.TenantID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	grant := model.ManagerTenantAccess{UserID: req.UserID, TenantID: req.TenantID}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := database.GetDB().Create(&grant).Error; err != nil {
		log.Error("Failed to create tenant grant",
			zap.Uint("user_id", req.UserID),
			zap.Uint("tenant_id", req.TenantID),
			zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": "grant already exists"})
	}

	log.Info("Tenant access granted",
		zap.Uint("user_id", req.UserID),
		zap.Uint("tenant_id", req.TenantID))
	return c.JSON(http.StatusCreated, echo.Map{"grant": grant})
}

// RevokeTenantAccess removes a MANAGER's grant. ADMIN only.
func RevokeTenantAccess(c echo.Context) error {
	log := logger.FromContext(c)

	if requireAdmin(c) == nil {
		prometheus.RecordAccessError("admin_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req struct {
		UserID   uint `json:"user_id"`
		TenantID uint `json:"tenant_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.TenantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and tenant_id are required"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := database.GetDB().
		Where("user_id = ? AND tenant_id = ?", req.UserID, req.TenantID).
		Delete(&model.ManagerTenantAccess{})
	if result.Error != nil {
		log.Error("Failed to revoke tenant grant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "grant not found"})
	}

	log.Info("Tenant access revoked",
		zap.Uint("user_id", req.UserID),
		zap.Uint("tenant_id", req.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "grant revoked"})
}
