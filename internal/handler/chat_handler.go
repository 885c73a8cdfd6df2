package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"support-chat-service/internal/chat"
	"support-chat-service/internal/middleware"
	"support-chat-service/internal/model"
	"support-chat-service/internal/workflow"
	"support-chat-service/pkg/database"
	"support-chat-service/pkg/jwtutil"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// historyLimit bounds how many prior turns are loaded for context and
// forwarded to the workflow.
const historyLimit = 10

// Chat handles one chat turn: persist the user message, call the AI
// workflow with derived context, normalize whatever comes back (or
// degrade to a fallback reply) and persist the assistant message.
func Chat(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordChatTurn()

	actor := middleware.Actor(c)
	if actor == nil {
		prometheus.RecordAccessError("unauthenticated_chat")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Message            string `json:"message"`
		ConversationID     uint   `json:"conversation_id,omitempty"`
		TenantID           uint   `json:"tenant_id,omitempty"`
		RetryAfterFallback bool   `json:"retry_after_fallback,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse chat request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message is required"})
	}

	tenantID := actor.TenantID
	if req.TenantID != 0 {
		tenantID = req.TenantID
	}
	if !authorizeTenant(c, actor, tenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, tenantID); result.Error != nil {
		log.Error("Tenant not found", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	// Conversations are created lazily on the first message.
	conversation, err := loadOrCreateConversation(req.ConversationID, tenantID, actor.ID, req.Message)
	if err != nil {
		log.Error("Failed to load conversation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "conversation error"})
	}
	if conversation == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if conversation.TenantID != tenantID {
		prometheus.RecordAccessError("conversation_tenant_mismatch")
		return hideResource(c, "conversation")
	}

	history, err := loadHistory(conversation.ID)
	if err != nil {
		log.Error("Failed to load history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "conversation error"})
	}

	// Persist the user turn before calling out; messages are immutable
	// once written.
	userMessage := model.Message{
		ConversationID: conversation.ID,
		TenantID:       tenantID,
		Role:           model.MessageRoleUser,
		Content:        req.Message,
	}
	trackInsert := prometheus.TrackDBOperation("insert")
	err = database.GetDB().Create(&userMessage).Error
	trackInsert(time.Now())
	if err != nil {
		log.Error("Failed to persist user message", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save message"})
	}

	contextText, hints := chat.ExtractContext(history, req.Message, req.RetryAfterFallback)

	token, err := jwtutil.GenerateWorkflowToken(actor.ID, tenantID, tenant.Slug, sessionID(conversation.ID))
	if err != nil {
		log.Error("Failed to issue workflow token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	workflowReq := &workflow.ChatRequest{
		Message:          req.Message,
		Context:          contextText,
		History:          historyTurns(history),
		EntityHints:      hints,
		TenantID:         tenantID,
		TenantSlug:       tenant.Slug,
		UserID:           actor.ID,
		SessionID:        sessionID(conversation.ID),
		TechnicalDomains: tenant.Namespaces(),
	}

	normalized := runWorkflowTurn(c.Request().Context(), log, token, workflowReq)

	if normalized.Content == "" && normalized.ComponentData == nil && !normalized.IsFallback {
		// Nothing extractable yet. An empty assistant message must never
		// be sent; the client keeps polling or retries the turn.
		prometheus.RecordNormalizerOutcome("empty")
		log.Warn("Workflow response had no extractable content",
			zap.Uint("conversation_id", conversation.ID))
		return c.JSON(http.StatusAccepted, echo.Map{
			"status":          "pending",
			"conversation_id": conversation.ID,
			"message":         "The assistant is still working on a reply. Please try again shortly.",
		})
	}

	response := chat.Response{
		Role:          "assistant",
		Content:       normalized.Content,
		Timestamp:     time.Now(),
		IsFallback:    normalized.IsFallback,
		ComponentData: normalized.ComponentData,
	}

	assistantMessage := model.Message{
		ConversationID: conversation.ID,
		TenantID:       tenantID,
		Role:           model.MessageRoleAssistant,
		Content:        normalized.Content,
		Metadata:       assistantMetadata(normalized),
	}
	trackInsert = prometheus.TrackDBOperation("insert")
	err = database.GetDB().Create(&assistantMessage).Error
	trackInsert(time.Now())
	if err != nil {
		log.Error("Failed to persist assistant message", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save message"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"conversation_id": conversation.ID,
		"response":        response,
	})
}

// runWorkflowTurn calls the workflow under the fallback policy and
// normalizes the outcome.
func runWorkflowTurn(ctx context.Context, log *zap.Logger, token string, req *workflow.ChatRequest) chat.Normalized {
	done := prometheus.TrackWorkflowCall()
	body, err := fallbackPolicy.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return workflowClient.Send(ctx, token, req)
	})
	done()

	if err != nil {
		category := chat.CategorizeFailure(err)
		prometheus.RecordFallback(category)
		log.Warn("Workflow call exhausted retries; degrading to fallback",
			zap.String("category", category),
			zap.Error(err))
		return fallbackPolicy.Fallback(err)
	}

	normalized := chat.Normalize(body)
	switch {
	case normalized.IsFallback:
		prometheus.RecordNormalizerOutcome("sentinel")
	case normalized.ComponentData != nil:
		prometheus.RecordNormalizerOutcome("component")
	case normalized.Content != "":
		prometheus.RecordNormalizerOutcome("text")
	}
	return normalized
}

func loadOrCreateConversation(id, tenantID, userID uint, firstMessage string) (*model.Conversation, error) {
	if id != 0 {
		var conversation model.Conversation
		result := database.GetDB().First(&conversation, id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, result.Error
		}
		return &conversation, nil
	}

	conversation := model.Conversation{
		TenantID: tenantID,
		UserID:   userID,
		Title:    model.ConversationTitle(firstMessage),
	}
	if err := database.GetDB().Create(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func loadHistory(conversationID uint) ([]model.Message, error) {
	var messages []model.Message
	err := database.GetDB().
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(historyLimit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse back into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func historyTurns(history []model.Message) []workflow.HistoryTurn {
	turns := make([]workflow.HistoryTurn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, workflow.HistoryTurn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}

func assistantMetadata(n chat.Normalized) datatypes.JSONMap {
	meta := datatypes.JSONMap{"isFallbackMode": n.IsFallback}
	if n.ComponentData != nil {
		meta["componentData"] = map[string]interface{}{
			"component": n.ComponentData.Component,
			"props":     n.ComponentData.Props,
		}
	}
	return meta
}

func sessionID(conversationID uint) string {
	return "conv-" + strconv.FormatUint(uint64(conversationID), 10)
}
