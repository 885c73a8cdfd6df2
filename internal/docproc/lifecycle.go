// Package docproc owns the document processing lifecycle: ingest,
// hand-off to the external processor, webhook-driven completion or
// failure, and the single permitted retry.
package docproc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support-chat-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// DocumentStore is the persistence surface the lifecycle needs.
type DocumentStore interface {
	// FindByNameAndTenant returns (nil, nil) on a lookup miss.
	FindByNameAndTenant(name string, tenantID uint) (*model.Document, error)
	// FindByID returns (nil, nil) on a lookup miss.
	FindByID(id uint) (*model.Document, error)
	Create(doc *model.Document) error
	Save(doc *model.Document) error
	// ClaimRetry atomically flips a FAILED document back to PROCESSING
	// and merges stamp into its metadata, but only when no retryAttempt
	// flag exists yet. Reports whether the claim won.
	ClaimRetry(id uint, stamp datatypes.JSONMap) (bool, error)
	// MergeMetadata merges patch into the document's metadata bag
	// without touching any other column.
	MergeMetadata(id uint, patch datatypes.JSONMap) error
	CreateChunks(chunks []model.DocumentChunk) error
}

// NotificationStore persists lifecycle notifications.
type NotificationStore interface {
	Create(n *model.Notification) error
}

// TenantStore resolves tenants for hand-off identity.
type TenantStore interface {
	// FindByID returns (nil, nil) on a lookup miss.
	FindByID(id uint) (*model.Tenant, error)
}

// DownloadIssuer signs time-limited download URLs for stored files.
type DownloadIssuer interface {
	IssueDownloadLocator(key string, ttl time.Duration) (string, error)
}

// HandoffSender posts a hand-off to the external processor and returns
// the HTTP status. Transport errors are returned as errors; a non-2xx
// status is not.
type HandoffSender interface {
	Send(ctx context.Context, token string, req *HandoffRequest) (int, error)
}

// TokenIssuer mints the signed token authenticating outbound calls.
type TokenIssuer func(userID, tenantID uint, tenantSlug, sessionID string) (string, error)

// IngestInput carries everything known about an upload at notification
// time.
type IngestInput struct {
	TenantID    uint
	UserID      uint
	Name        string
	StorageKey  string
	URL         string
	Size        int64
	MimeType    string
	Namespace   string
	Description string
}

// Ingest outcomes.
const (
	OutcomeCreated     = "created"
	OutcomeResubmitted = "resubmitted"
	OutcomeDuplicate   = "duplicate"
)

// ChunkInput is one extracted content chunk from the processor webhook.
type ChunkInput struct {
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunkIndex"`
}

// Controller drives document status transitions. Hand-off to the
// external processor is fire-and-forget relative to the ingest response:
// a hand-off failure only ever writes diagnostic metadata.
type Controller struct {
	docs          DocumentStore
	notifications NotificationStore
	tenants       TenantStore
	sender        HandoffSender
	locators      DownloadIssuer
	issueToken    TokenIssuer
	processorTTL  time.Duration
	logger        *zap.Logger

	// spawn is replaceable in tests to make dispatch synchronous.
	spawn func(fn func())
	now   func() time.Time
}

// NewController wires a lifecycle controller.
func NewController(
	docs DocumentStore,
	notifications NotificationStore,
	tenants TenantStore,
	sender HandoffSender,
	locators DownloadIssuer,
	issueToken TokenIssuer,
	processorTTL time.Duration,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		docs:          docs,
		notifications: notifications,
		tenants:       tenants,
		sender:        sender,
		locators:      locators,
		issueToken:    issueToken,
		processorTTL:  processorTTL,
		logger:        logger,
		spawn:         func(fn func()) { go fn() },
		now:           time.Now,
	}
}

// Ingest registers an uploaded document. Re-upload of an existing name
// within the tenant updates the record only when the previous attempt
// FAILED; a PROCESSING or PROCESSED record is returned untouched, which
// guards against double-click and resubmit races. The returned outcome
// is one of OutcomeCreated, OutcomeResubmitted, OutcomeDuplicate.
func (c *Controller) Ingest(in IngestInput) (*model.Document, string, error) {
	if !isPDF(in.Name, in.MimeType) {
		return nil, "", ErrNotPDF
	}

	existing, err := c.docs.FindByNameAndTenant(in.Name, in.TenantID)
	if err != nil {
		return nil, "", err
	}

	var doc *model.Document
	outcome := OutcomeCreated

	switch {
	case existing == nil:
		doc = &model.Document{
			TenantID:   in.TenantID,
			UserID:     in.UserID,
			Name:       in.Name,
			Type:       "pdf",
			StorageKey: in.StorageKey,
			URL:        in.URL,
			Status:     model.DocStatusProcessing,
		}
		MetaOf(doc).SetUploadInfo(in.Size, in.MimeType, in.Namespace, in.Description)
		if err := c.docs.Create(doc); err != nil {
			return nil, "", err
		}

	case existing.Status == model.DocStatusFailed:
		doc = existing
		doc.StorageKey = in.StorageKey
		doc.URL = in.URL
		doc.Status = model.DocStatusProcessing
		meta := MetaOf(doc)
		meta.MarkResubmitted()
		meta.SetUploadInfo(in.Size, in.MimeType, in.Namespace, in.Description)
		if err := c.docs.Save(doc); err != nil {
			return nil, "", err
		}
		outcome = OutcomeResubmitted

	default:
		// Already PROCESSING or PROCESSED: no duplicate submission.
		return existing, OutcomeDuplicate, nil
	}

	c.notify(doc, model.NotificationDocumentUploaded,
		"Document uploaded",
		fmt.Sprintf("%q was uploaded and is being processed.", doc.Name))

	c.dispatchHandoff(doc.ID)

	return doc, outcome, nil
}

// Handoff sends the document to the external processor. Every write
// here is a metadata-only merge: the webhook may land at any moment and
// move the document to PROCESSED or FAILED, and a whole-record save of
// the row fetched above would silently revert that. Only Complete and
// Fail ever change status.
func (c *Controller) Handoff(ctx context.Context, docID uint) error {
	doc, err := c.docs.FindByID(docID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrNotFound
	}

	if err := c.docs.MergeMetadata(doc.ID, SentToProcessorStamp(c.now())); err != nil {
		return err
	}

	tenant, err := c.tenants.FindByID(doc.TenantID)
	if err != nil {
		return err
	}
	tenantSlug := ""
	if tenant != nil {
		tenantSlug = tenant.Slug
	}

	tempURL, err := c.locators.IssueDownloadLocator(doc.StorageKey, c.processorTTL)
	if err != nil {
		c.recordHandoffOutcome(doc.ID, 0, err)
		return err
	}

	token, err := c.issueToken(doc.UserID, doc.TenantID, tenantSlug, fmt.Sprintf("doc-%d", doc.ID))
	if err != nil {
		c.recordHandoffOutcome(doc.ID, 0, err)
		return err
	}

	meta := MetaOf(doc)
	req := &HandoffRequest{
		DocumentID:   doc.ID,
		Name:         doc.Name,
		PermanentURL: doc.URL,
		TemporaryURL: tempURL,
		TenantID:     doc.TenantID,
		TenantSlug:   tenantSlug,
		UserID:       doc.UserID,
		MimeType:     meta.MimeType(),
		Namespace:    meta.Namespace(),
	}

	status, err := c.sender.Send(ctx, token, req)
	c.recordHandoffOutcome(doc.ID, status, err)
	if err != nil {
		return err
	}

	c.logger.Info("Document handed off to processor",
		zap.Uint("document_id", doc.ID),
		zap.Int("status", status))
	return nil
}

func (c *Controller) recordHandoffOutcome(docID uint, status int, err error) {
	if mergeErr := c.docs.MergeMetadata(docID, HandoffOutcomeStamp(status, err)); mergeErr != nil {
		c.logger.Error("Failed to record handoff outcome",
			zap.Uint("document_id", docID),
			zap.Error(mergeErr))
	}
}

// Complete moves a document to PROCESSED and persists its content
// chunks. Idempotent: re-invocation re-sets status and notifies again.
func (c *Controller) Complete(docID uint, chunks []ChunkInput) (*model.Document, error) {
	doc, err := c.docs.FindByID(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	doc.Status = model.DocStatusProcessed
	MetaOf(doc).MarkProcessed(c.now())
	if err := c.docs.Save(doc); err != nil {
		return nil, err
	}

	if len(chunks) > 0 {
		records := make([]model.DocumentChunk, 0, len(chunks))
		for _, chunk := range chunks {
			records = append(records, model.DocumentChunk{
				DocumentID: doc.ID,
				TenantID:   doc.TenantID,
				ChunkIndex: chunk.ChunkIndex,
				Content:    chunk.Content,
			})
		}
		if err := c.docs.CreateChunks(records); err != nil {
			return nil, err
		}
	}

	c.notify(doc, model.NotificationDocumentProcessed,
		"Document processed",
		fmt.Sprintf("%q has been processed and is ready for chat.", doc.Name))

	return doc, nil
}

// Fail moves a document to FAILED and records the error.
func (c *Controller) Fail(docID uint, errMsg string) (*model.Document, error) {
	doc, err := c.docs.FindByID(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	doc.Status = model.DocStatusFailed
	MetaOf(doc).MarkFailed(errMsg, c.now())
	if err := c.docs.Save(doc); err != nil {
		return nil, err
	}

	c.notify(doc, model.NotificationDocumentProcessingFailed,
		"Document processing failed",
		fmt.Sprintf("%q could not be processed: %s", doc.Name, errMsg))

	return doc, nil
}

// Retry re-submits a FAILED document exactly once per document lifetime.
// The check-and-set of the retryAttempt flag is a single atomic update,
// so concurrent clicks cannot both win.
func (c *Controller) Retry(docID uint) (*model.Document, error) {
	doc, err := c.docs.FindByID(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	if MetaOf(doc).RetryAttempt() > 0 {
		return nil, ErrAlreadyRetried
	}

	claimed, err := c.docs.ClaimRetry(doc.ID, RetryStamp(doc.Status, c.now()))
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the race, or the document is not FAILED.
		fresh, err := c.docs.FindByID(doc.ID)
		if err != nil {
			return nil, err
		}
		if fresh != nil && MetaOf(fresh).RetryAttempt() > 0 {
			return nil, ErrAlreadyRetried
		}
		return nil, ErrRetryNotAllowed
	}

	fresh, err := c.docs.FindByID(doc.ID)
	if err != nil {
		return nil, err
	}

	c.dispatchHandoff(doc.ID)

	return fresh, nil
}

// dispatchHandoff fires the processor hand-off in the background. The
// ingest caller has already been answered by the time this runs, so a
// hand-off failure can never surface as an ingest failure.
func (c *Controller) dispatchHandoff(docID uint) {
	c.spawn(func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Handoff panicked",
					zap.Uint("document_id", docID),
					zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := c.Handoff(ctx, docID); err != nil {
			c.logger.Warn("Document handoff failed; webhook may still complete it",
				zap.Uint("document_id", docID),
				zap.Error(err))
		}
	})
}

func (c *Controller) notify(doc *model.Document, notifType, title, message string) {
	notification := &model.Notification{
		TenantID: doc.TenantID,
		UserID:   doc.UserID,
		Type:     notifType,
		Title:    title,
		Message:  message,
		Metadata: datatypes.JSONMap{
			"documentId":   doc.ID,
			"documentName": doc.Name,
			"status":       doc.Status,
		},
	}
	if err := c.notifications.Create(notification); err != nil {
		c.logger.Warn("Failed to create notification",
			zap.String("type", notifType),
			zap.Uint("document_id", doc.ID),
			zap.Error(err))
	}
}

func isPDF(name, mimeType string) bool {
	if mimeType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
