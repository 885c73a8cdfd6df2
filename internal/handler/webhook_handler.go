package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"support-chat-service/internal/docproc"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProcessingWebhook receives the document processor's callback and
// drives the final PROCESSING -> PROCESSED/FAILED transition. This is
// the only place document status leaves PROCESSING.
func ProcessingWebhook(c echo.Context) error {
	log := logger.FromContext(c)

	if !validWebhookSecret(c) {
		prometheus.RecordAccessError("invalid_webhook_secret")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook credentials"})
	}

	var req struct {
		DocumentID uint                 `json:"documentId"`
		Status     string               `json:"status"`
		Chunks     []docproc.ChunkInput `json:"chunks,omitempty"`
		Error      string               `json:"error,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse processing webhook", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.DocumentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "documentId is required"})
	}

	prometheus.RecordWebhook(strings.ToLower(req.Status))

	switch strings.ToLower(req.Status) {
	case "success", "processed", "completed":
		doc, err := docController.Complete(req.DocumentID, req.Chunks)
		if err != nil {
			if errors.Is(err, docproc.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
			}
			log.Error("Failed to complete document", zap.Uint("document_id", req.DocumentID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "completion failed"})
		}
		prometheus.RecordDocumentTransition("processed")
		prometheus.DecProcessingDocuments()
		log.Info("Document processed",
			zap.Uint("document_id", doc.ID),
			zap.Int("chunks", len(req.Chunks)))
		return c.JSON(http.StatusOK, echo.Map{"document": doc})

	case "error", "failed":
		errMsg := req.Error
		if errMsg == "" {
			errMsg = "processing failed"
		}
		doc, err := docController.Fail(req.DocumentID, errMsg)
		if err != nil {
			if errors.Is(err, docproc.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
			}
			log.Error("Failed to mark document failed", zap.Uint("document_id", req.DocumentID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failure update failed"})
		}
		prometheus.RecordDocumentTransition("failed")
		prometheus.DecProcessingDocuments()
		log.Warn("Document processing failed",
			zap.Uint("document_id", doc.ID),
			zap.String("error", errMsg))
		return c.JSON(http.StatusOK, echo.Map{"document": doc})

	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status: " + req.Status})
	}
}

func validWebhookSecret(c echo.Context) bool {
	provided := c.Request().Header.Get("X-Webhook-Secret")
	expected := cfg.Processor.WebhookSecret
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
