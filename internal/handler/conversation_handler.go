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

// ListConversations returns the tenant's conversations, newest first.
func ListConversations(c echo.Context) error {
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

	defer prometheus.TrackDBOperation("query")(time.Now())

	var conversations []model.Conversation
	err := database.GetDB().
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		log.Error("Failed to list conversations", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list conversations"})
	}

	return c.JSON(http.StatusOK, conversations)
}

// GetConversationMessages returns a conversation's messages in creation
// order.
func GetConversationMessages(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conversation ID"})
	}

	var conversation model.Conversation
	if result := database.GetDB().First(&conversation, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if !authorizeTenant(c, actor, conversation.TenantID) {
		return hideResource(c, "conversation")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var messages []model.Message
	err = database.GetDB().
		Where("conversation_id = ?", conversation.ID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		log.Error("Failed to load messages", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load messages"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"conversation": conversation,
		"messages":     messages,
	})
}
