package handler

import (
	"net/http"
	"strconv"
	"time"

	"support-chat-service/internal/middleware"
	"support-chat-service/internal/model"
	"support-chat-service/pkg/database"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListNotifications returns tenant notifications, optionally only those
// created after ?since=<RFC3339>. Clients poll this every few seconds;
// the contract is eventual consistency, no ordering guarantee against
// document status visibility.
func ListNotifications(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID := actor.TenantID
	if raw := c.QueryParam("tenant_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant_id"})
		}
		tenantID = uint(parsed)
	}
	if !authorizeTenant(c, actor, tenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	query := database.GetDB().Where("tenant_id = ?", tenantID)

	if raw := c.QueryParam("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since timestamp, expected RFC3339"})
		}
		query = query.Where("created_at > ?", since)
	}

	if c.QueryParam("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var notifications []model.Notification
	if err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		log.Error("Failed to list notifications", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list notifications"})
	}

	return c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead flags a notification as read.
func MarkNotificationRead(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification ID"})
	}

	var notification model.Notification
	if result := database.GetDB().First(&notification, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
	}
	if !authorizeTenant(c, actor, notification.TenantID) {
		return hideResource(c, "notification")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := database.GetDB().Model(&notification).Update("read", true).Error; err != nil {
		log.Error("Failed to mark notification read", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "notification marked read"})
}
