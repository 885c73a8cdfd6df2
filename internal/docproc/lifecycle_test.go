package docproc

import (
	"context"
	"errors"
	"testing"
	"time"

	"support-chat-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fakeDocStore struct {
	nextID uint
	docs   map[uint]*model.Document
	chunks []model.DocumentChunk
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{nextID: 1, docs: map[uint]*model.Document{}}
}

func (s *fakeDocStore) FindByNameAndTenant(name string, tenantID uint) (*model.Document, error) {
	for _, doc := range s.docs {
		if doc.Name == name && doc.TenantID == tenantID {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeDocStore) FindByID(id uint) (*model.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocStore) Create(doc *model.Document) error {
	doc.ID = s.nextID
	s.nextID++
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeDocStore) Save(doc *model.Document) error {
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeDocStore) ClaimRetry(id uint, stamp datatypes.JSONMap) (bool, error) {
	doc, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	if doc.Status != model.DocStatusFailed {
		return false, nil
	}
	if doc.Metadata != nil {
		if _, exists := doc.Metadata["retryAttempt"]; exists {
			return false, nil
		}
	}
	if doc.Metadata == nil {
		doc.Metadata = datatypes.JSONMap{}
	}
	for k, v := range stamp {
		doc.Metadata[k] = v
	}
	doc.Status = model.DocStatusProcessing
	return true, nil
}

func (s *fakeDocStore) MergeMetadata(id uint, patch datatypes.JSONMap) error {
	doc, ok := s.docs[id]
	if !ok {
		return nil
	}
	if doc.Metadata == nil {
		doc.Metadata = datatypes.JSONMap{}
	}
	for k, v := range patch {
		doc.Metadata[k] = v
	}
	return nil
}

func (s *fakeDocStore) CreateChunks(chunks []model.DocumentChunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

type fakeNotifStore struct {
	created []model.Notification
}

func (s *fakeNotifStore) Create(n *model.Notification) error {
	s.created = append(s.created, *n)
	return nil
}

type fakeTenantStore struct{}

func (s *fakeTenantStore) FindByID(id uint) (*model.Tenant, error) {
	return &model.Tenant{ID: id, Slug: "acme"}, nil
}

type fakeSender struct {
	status   int
	err      error
	requests []*HandoffRequest
	tokens   []string
}

func (s *fakeSender) Send(_ context.Context, token string, req *HandoffRequest) (int, error) {
	s.requests = append(s.requests, req)
	s.tokens = append(s.tokens, token)
	if s.err != nil {
		return 0, s.err
	}
	return s.status, nil
}

type fakeLocators struct{}

func (fakeLocators) IssueDownloadLocator(key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key + "?sig=abc", nil
}

func testController(sender HandoffSender) (*Controller, *fakeDocStore, *fakeNotifStore) {
	docs := newFakeDocStore()
	notifs := &fakeNotifStore{}

	ctrl := NewController(
		docs,
		notifs,
		&fakeTenantStore{},
		sender,
		fakeLocators{},
		func(userID, tenantID uint, tenantSlug, sessionID string) (string, error) {
			return "token-" + sessionID, nil
		},
		48*time.Hour,
		zap.NewNop(),
	)
	// Run hand-offs inline so assertions see their effects.
	ctrl.spawn = func(fn func()) { fn() }
	ctrl.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return ctrl, docs, notifs
}

func pdfInput(name string) IngestInput {
	return IngestInput{
		TenantID:   1,
		UserID:     10,
		Name:       name,
		StorageKey: "acme/" + name,
		URL:        "https://storage.test/acme/" + name,
		Size:       2048,
		MimeType:   "application/pdf",
	}
}

func TestIngestCreatesAndHandsOff(t *testing.T) {
	sender := &fakeSender{status: 200}
	ctrl, docs, notifs := testController(sender)

	doc, outcome, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, model.DocStatusProcessing, doc.Status)

	stored, _ := docs.FindByID(doc.ID)
	require.NotNil(t, stored)
	meta := MetaOf(stored)
	assert.True(t, meta.SentToProcessing())
	assert.Equal(t, StateSentToProcessor, meta.ProcessingState())
	assert.Equal(t, 200, meta.HandoffStatus())

	require.Len(t, sender.requests, 1)
	req := sender.requests[0]
	assert.Equal(t, doc.ID, req.DocumentID)
	assert.Equal(t, "acme", req.TenantSlug)
	assert.Contains(t, req.TemporaryURL, "sig=")
	assert.Equal(t, "token-doc-1", sender.tokens[0])

	require.Len(t, notifs.created, 1)
	assert.Equal(t, model.NotificationDocumentUploaded, notifs.created[0].Type)
}

func TestIngestRejectsNonPDF(t *testing.T) {
	ctrl, docs, _ := testController(&fakeSender{status: 200})

	in := pdfInput("photo.png")
	in.MimeType = "image/png"

	_, _, err := ctrl.Ingest(in)
	assert.ErrorIs(t, err, ErrNotPDF)
	assert.Empty(t, docs.docs)
}

func TestIngestAcceptsPDFByExtension(t *testing.T) {
	ctrl, _, _ := testController(&fakeSender{status: 200})

	in := pdfInput("Manual.PDF")
	in.MimeType = "application/octet-stream"

	_, outcome, err := ctrl.Ingest(in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
}

func TestIngestDuplicateWhileProcessing(t *testing.T) {
	sender := &fakeSender{status: 200}
	ctrl, _, notifs := testController(sender)

	first, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)

	second, outcome, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, first.ID, second.ID)

	assert.Len(t, sender.requests, 1, "duplicate must not re-handoff")
	assert.Len(t, notifs.created, 1, "duplicate must not re-notify")
}

func TestIngestResubmitAfterFailure(t *testing.T) {
	sender := &fakeSender{status: 200}
	ctrl, docs, _ := testController(sender)

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)

	_, err = ctrl.Fail(doc.ID, "parse error")
	require.NoError(t, err)

	in := pdfInput("manual.pdf")
	in.StorageKey = "acme/manual-v2.pdf"
	fresh, outcome, err := ctrl.Ingest(in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeResubmitted, outcome)
	assert.Equal(t, doc.ID, fresh.ID)
	assert.Equal(t, model.DocStatusProcessing, fresh.Status)
	assert.Equal(t, "acme/manual-v2.pdf", fresh.StorageKey)

	stored, _ := docs.FindByID(doc.ID)
	meta := MetaOf(stored)
	assert.Equal(t, 1, meta.ResubmissionCount())
	assert.Empty(t, meta.LastError(), "failure diagnostics cleared on resubmit")
}

func TestHandoffNon2xxKeepsProcessing(t *testing.T) {
	sender := &fakeSender{status: 503}
	ctrl, docs, _ := testController(sender)

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)

	stored, _ := docs.FindByID(doc.ID)
	assert.Equal(t, model.DocStatusProcessing, stored.Status,
		"processor rejection is diagnostic only; the webhook decides")
	assert.Equal(t, 503, MetaOf(stored).HandoffStatus())
}

func TestHandoffTransportErrorKeepsProcessing(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	ctrl, docs, _ := testController(sender)

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err, "ingest must not surface handoff failures")

	stored, _ := docs.FindByID(doc.ID)
	assert.Equal(t, model.DocStatusProcessing, stored.Status)
	assert.Equal(t, "connection refused", MetaOf(stored).HandoffError())
}

// webhookRacingSender completes the document via the given callback
// before its Send returns, as if the processor finished and called the
// webhook while the hand-off POST was still in flight.
type webhookRacingSender struct {
	complete func(docID uint)
}

func (s *webhookRacingSender) Send(_ context.Context, _ string, req *HandoffRequest) (int, error) {
	s.complete(req.DocumentID)
	return 200, nil
}

func TestHandoffDoesNotRevertWebhookCompletion(t *testing.T) {
	sender := &webhookRacingSender{}
	ctrl, docs, _ := testController(sender)
	sender.complete = func(docID uint) {
		_, err := ctrl.Complete(docID, []ChunkInput{{Content: "chapter one", ChunkIndex: 0}})
		require.NoError(t, err)
	}

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)

	stored, _ := docs.FindByID(doc.ID)
	require.NotNil(t, stored)
	assert.Equal(t, model.DocStatusProcessed, stored.Status,
		"handoff bookkeeping must not undo a status the webhook already set")
	assert.Equal(t, 200, MetaOf(stored).HandoffStatus(),
		"handoff diagnostics still land alongside the webhook's result")
}

func TestCompleteStoresChunks(t *testing.T) {
	sender := &fakeSender{status: 200}
	ctrl, docs, notifs := testController(sender)

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)

	done, err := ctrl.Complete(doc.ID, []ChunkInput{
		{Content: "chapter one", ChunkIndex: 0},
		{Content: "chapter two", ChunkIndex: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusProcessed, done.Status)

	require.Len(t, docs.chunks, 2)
	assert.Equal(t, 0, docs.chunks[0].ChunkIndex)
	assert.Equal(t, doc.TenantID, docs.chunks[0].TenantID)
	assert.Equal(t, "chapter one", docs.chunks[0].Content)

	require.Len(t, notifs.created, 2)
	assert.Equal(t, model.NotificationDocumentProcessed, notifs.created[1].Type)
}

func TestCompleteUnknownDocument(t *testing.T) {
	ctrl, _, _ := testController(&fakeSender{status: 200})

	_, err := ctrl.Complete(42, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailRecordsErrorAndNotifies(t *testing.T) {
	sender := &fakeSender{status: 200}
	ctrl, docs, notifs := testController(sender)

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)

	failed, err := ctrl.Fail(doc.ID, "corrupt file")
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusFailed, failed.Status)

	stored, _ := docs.FindByID(doc.ID)
	meta := MetaOf(stored)
	assert.Equal(t, StateFailed, meta.ProcessingState())
	assert.Equal(t, "corrupt file", meta.LastError())

	require.Len(t, notifs.created, 2)
	assert.Equal(t, model.NotificationDocumentProcessingFailed, notifs.created[1].Type)
}

func TestRetryOncePerLifetime(t *testing.T) {
	sender := &fakeSender{status: 200}
	ctrl, docs, _ := testController(sender)

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)
	_, err = ctrl.Fail(doc.ID, "parse error")
	require.NoError(t, err)

	fresh, err := ctrl.Retry(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusProcessing, fresh.Status)
	assert.Equal(t, 1, MetaOf(fresh).RetryAttempt())
	assert.Equal(t, model.DocStatusFailed, MetaOf(fresh).PreviousStatus())
	assert.Len(t, sender.requests, 2, "retry dispatches a fresh handoff")

	// A second failure does not reopen the retry budget.
	_, err = ctrl.Fail(doc.ID, "failed again")
	require.NoError(t, err)

	_, err = ctrl.Retry(doc.ID)
	assert.ErrorIs(t, err, ErrAlreadyRetried)
	assert.Len(t, sender.requests, 2)

	stored, _ := docs.FindByID(doc.ID)
	assert.Equal(t, model.DocStatusFailed, stored.Status)
}

func TestRetryRequiresFailedStatus(t *testing.T) {
	ctrl, _, _ := testController(&fakeSender{status: 200})

	doc, _, err := ctrl.Ingest(pdfInput("manual.pdf"))
	require.NoError(t, err)

	_, err = ctrl.Retry(doc.ID)
	assert.ErrorIs(t, err, ErrRetryNotAllowed)
}

func TestRetryUnknownDocument(t *testing.T) {
	ctrl, _, _ := testController(&fakeSender{status: 200})

	_, err := ctrl.Retry(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryStampShape(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stamp := RetryStamp(model.DocStatusFailed, at)

	assert.Equal(t, 1, stamp["retryAttempt"])
	assert.Equal(t, "2026-03-01T12:00:00Z", stamp["retryAt"])
	assert.Equal(t, model.DocStatusFailed, stamp["previousStatus"])
}

func TestMetaGetIntToleratesFloat64(t *testing.T) {
	doc := &model.Document{Metadata: datatypes.JSONMap{"retryAttempt": float64(1)}}

	assert.Equal(t, 1, MetaOf(doc).RetryAttempt())
}
