package handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"support-chat-service/internal/middleware"
	"support-chat-service/internal/model"
	"support-chat-service/pkg/database"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// InviteUser creates a user with a generated temporary password and
// emails it to them. The account is flagged must_change_password so the
// temporary credential cannot persist. ADMIN only.
func InviteUser(c echo.Context) error {
	log := logger.FromContext(c)

	if requireAdmin(c) == nil {
		prometheus.RecordAccessError("admin_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		TenantID uint   `json:"tenant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.TenantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and tenant_id are required"})
	}

	switch req.Role {
	case model.RoleAdmin, model.RoleManager, model.RoleSupportAgent:
	case "":
		req.Role = model.RoleSupportAgent
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role: " + req.Role})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, req.TenantID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		log.Error("Failed to generate temporary password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite failed"})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash temporary password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite failed"})
	}

	user := model.User{
		Email:              req.Email,
		Name:               req.Name,
		Password:           string(hashed),
		Role:               req.Role,
		TenantID:           req.TenantID,
		MustChangePassword: true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := database.GetDB().Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": "user creation failed, email may already exist"})
	}

	mailService.SendInvite(user.Email, user.Name, tempPassword)

	log.Info("User invited",
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Uint("tenant_id", user.TenantID))
	return c.JSON(http.StatusCreated, echo.Map{"user": user})
}

// ListUsers returns users in a tenant the actor can access.
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID := actor.TenantID
	if raw := c.QueryParam("tenant_id"); raw != "" {
		parsed, err := parseUintParam(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant_id"})
		}
		tenantID = parsed
	}
	if !authorizeTenant(c, actor, tenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var users []model.User
	if err := database.GetDB().Where("tenant_id = ?", tenantID).Order("email ASC").Find(&users).Error; err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
	}

	return c.JSON(http.StatusOK, users)
}

// ResetUserPassword issues a fresh temporary password for a user and
// emails it. ADMIN only.
func ResetUserPassword(c echo.Context) error {
	log := logger.FromContext(c)

	if requireAdmin(c) == nil {
		prometheus.RecordAccessError("admin_required")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var user model.User
	if result := database.GetDB().First(&user, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		log.Error("Failed to generate temporary password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash temporary password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	updates := map[string]interface{}{
		"password":             string(hashed),
		"must_change_password": true,
	}
	if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
		log.Error("Failed to reset password", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}

	mailService.SendPasswordReset(user.Email, tempPassword)

	log.Info("Password reset issued", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "temporary password sent"})
}

// generateTempPassword returns a random URL-safe credential. 18 random
// bytes gives 24 characters after encoding.
func generateTempPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
