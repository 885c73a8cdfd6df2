package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"support-chat-service/internal/docproc"
	"support-chat-service/internal/middleware"
	"support-chat-service/internal/model"
	"support-chat-service/pkg/database"
	"support-chat-service/pkg/logger"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateUploadURL issues a time-limited signed upload locator. File
// bytes go straight from the client to object storage.
func CreateUploadURL(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Filename string `json:"filename"`
		TenantID uint   `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.Filename == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "filename is required"})
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
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	locator, err := storageService.IssueUploadLocator(tenant.Slug, req.Filename)
	if err != nil {
		log.Error("Failed to issue upload locator", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}

	return c.JSON(http.StatusOK, locator)
}

// IngestDocument registers an uploaded file and kicks off processing.
// The hand-off to the external processor happens in the background, so
// this returns as soon as the record exists.
func IngestDocument(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name        string `json:"name"`
		StorageKey  string `json:"storage_key"`
		URL         string `json:"url"`
		Size        int64  `json:"size"`
		MimeType    string `json:"mime_type"`
		Namespace   string `json:"namespace,omitempty"`
		Description string `json:"description,omitempty"`
		TenantID    uint   `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.StorageKey == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and storage_key are required"})
	}

	tenantID := actor.TenantID
	if req.TenantID != 0 {
		tenantID = req.TenantID
	}
	if !authorizeTenant(c, actor, tenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	doc, outcome, err := docController.Ingest(docproc.IngestInput{
		TenantID:    tenantID,
		UserID:      actor.ID,
		Name:        req.Name,
		StorageKey:  req.StorageKey,
		URL:         req.URL,
		Size:        req.Size,
		MimeType:    req.MimeType,
		Namespace:   req.Namespace,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, docproc.ErrNotPDF) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "only PDF files are supported"})
		}
		log.Error("Failed to ingest document", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "document ingest failed"})
	}

	prometheus.RecordDocumentTransition(outcome)
	if outcome != docproc.OutcomeDuplicate {
		prometheus.IncProcessingDocuments()
	}
	log.Info("Document ingested",
		zap.Uint("document_id", doc.ID),
		zap.String("outcome", outcome),
		zap.Uint("tenant_id", tenantID))

	status := http.StatusCreated
	if outcome == docproc.OutcomeDuplicate {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"document": doc, "outcome": outcome})
}

// ListDocuments returns the tenant's documents, newest first.
func ListDocuments(c echo.Context) error {
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

	var documents []model.Document
	err := database.GetDB().
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&documents).Error
	if err != nil {
		log.Error("Failed to list documents", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list documents"})
	}

	return c.JSON(http.StatusOK, documents)
}

// DocumentStatus answers the polling question "what is the status of
// these document IDs". Only documents the actor's tenant scope covers
// are returned.
func DocumentStatus(c echo.Context) error {
	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	rawIDs := strings.Split(c.QueryParam("ids"), ",")
	var ids []uint
	for _, raw := range rawIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id: " + raw})
		}
		ids = append(ids, uint(parsed))
	}
	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ids is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var documents []model.Document
	err := database.GetDB().
		Select("id", "tenant_id", "status", "updated_at").
		Where("id IN ?", ids).
		Find(&documents).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status lookup failed"})
	}

	statuses := make([]echo.Map, 0, len(documents))
	for _, doc := range documents {
		if !authorizeTenant(c, actor, doc.TenantID) {
			continue
		}
		statuses = append(statuses, echo.Map{
			"id":         doc.ID,
			"status":     doc.Status,
			"updated_at": doc.UpdatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"statuses": statuses})
}

// RetryDocument re-submits a failed document. Each document gets one
// retry for its lifetime; a second request is refused with a distinct
// signal.
func RetryDocument(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document ID"})
	}

	var doc model.Document
	if result := database.GetDB().First(&doc, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
	}
	if !authorizeTenant(c, actor, doc.TenantID) {
		return hideResource(c, "document")
	}

	fresh, err := docController.Retry(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, docproc.ErrAlreadyRetried):
			return c.JSON(http.StatusConflict, echo.Map{"error": "document has already been retried"})
		case errors.Is(err, docproc.ErrRetryNotAllowed):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "document is not in a retryable state"})
		case errors.Is(err, docproc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		default:
			log.Error("Failed to retry document", zap.Uint64("id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "retry failed"})
		}
	}

	prometheus.RecordDocumentTransition("retried")
	prometheus.IncProcessingDocuments()
	log.Info("Document retry accepted", zap.Uint64("document_id", id))

	return c.JSON(http.StatusOK, echo.Map{"document": fresh})
}

// DeleteDocument removes a document and its chunks. Deletion is the
// only way out of PROCESSED.
func DeleteDocument(c echo.Context) error {
	log := logger.FromContext(c)

	actor := middleware.Actor(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document ID"})
	}

	var doc model.Document
	if result := database.GetDB().First(&doc, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
	}
	if !authorizeTenant(c, actor, doc.TenantID) {
		return hideResource(c, "document")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Where("document_id = ?", doc.ID).Delete(&model.DocumentChunk{}).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to delete document chunks", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := tx.Delete(&doc).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to delete document", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := tx.Commit().Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	log.Info("Document deleted", zap.Uint("document_id", doc.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "document deleted"})
}
