package docproc

import (
	"time"

	"support-chat-service/internal/model"

	"gorm.io/datatypes"
)

// Processing-state sub-flags stored in document metadata.
const (
	StateSentToProcessor = "SENT_TO_PROCESSOR"
	StateCompleted       = "COMPLETED"
	StateFailed          = "FAILED"
)

// Metadata bag keys. The set grows over time; all reads and writes go
// through Meta so callers don't each re-invent "read json field, cast,
// default".
const (
	metaSize              = "size"
	metaMimeType          = "mimeType"
	metaNamespace         = "namespace"
	metaDescription       = "description"
	metaSentToProcessing  = "sentToProcessing"
	metaProcessingState   = "processingState"
	metaSentToProcessorAt = "sentToProcessorAt"
	metaHandoffStatus     = "handoffStatus"
	metaHandoffError      = "handoffError"
	metaLastError         = "lastError"
	metaFailedAt          = "failedAt"
	metaProcessedAt       = "processedAt"
	metaRetryAttempt      = "retryAttempt"
	metaRetryAt           = "retryAt"
	metaPreviousStatus    = "previousStatus"
	metaResubmissionCount = "resubmissionCount"
)

// Meta is the typed accessor surface over a document's free-form
// metadata bag.
type Meta struct {
	doc *model.Document
}

// MetaOf wraps a document's metadata, initializing the bag if needed.
func MetaOf(doc *model.Document) Meta {
	if doc.Metadata == nil {
		doc.Metadata = datatypes.JSONMap{}
	}
	return Meta{doc: doc}
}

func (m Meta) getString(key string) string {
	s, _ := m.doc.Metadata[key].(string)
	return s
}

// getInt tolerates float64: JSON numbers decode that way after a
// round-trip through the jsonb column.
func (m Meta) getInt(key string) int {
	switch v := m.doc.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (m Meta) getBool(key string) bool {
	b, _ := m.doc.Metadata[key].(bool)
	return b
}

func (m Meta) set(key string, value interface{}) {
	m.doc.Metadata[key] = value
}

func (m Meta) SentToProcessing() bool    { return m.getBool(metaSentToProcessing) }
func (m Meta) ProcessingState() string   { return m.getString(metaProcessingState) }
func (m Meta) RetryAttempt() int         { return m.getInt(metaRetryAttempt) }
func (m Meta) ResubmissionCount() int    { return m.getInt(metaResubmissionCount) }
func (m Meta) LastError() string         { return m.getString(metaLastError) }
func (m Meta) HandoffError() string      { return m.getString(metaHandoffError) }
func (m Meta) HandoffStatus() int        { return m.getInt(metaHandoffStatus) }
func (m Meta) Namespace() string         { return m.getString(metaNamespace) }
func (m Meta) MimeType() string          { return m.getString(metaMimeType) }
func (m Meta) PreviousStatus() string    { return m.getString(metaPreviousStatus) }

// SetUploadInfo records the upload attributes captured at ingest.
func (m Meta) SetUploadInfo(size int64, mimeType, namespace, description string) {
	m.set(metaSize, size)
	m.set(metaMimeType, mimeType)
	if namespace != "" {
		m.set(metaNamespace, namespace)
	}
	if description != "" {
		m.set(metaDescription, description)
	}
	m.set(metaSentToProcessing, false)
}

// MarkResubmitted resets a failed document for re-processing.
func (m Meta) MarkResubmitted() {
	m.set(metaResubmissionCount, m.ResubmissionCount()+1)
	m.set(metaSentToProcessing, false)
	delete(m.doc.Metadata, metaLastError)
	delete(m.doc.Metadata, metaFailedAt)
	delete(m.doc.Metadata, metaProcessingState)
}

// SentToProcessorStamp is the metadata merged into the document row when
// a hand-off begins. A merge rather than a record save, so a webhook
// racing the hand-off cannot be overwritten.
func SentToProcessorStamp(at time.Time) datatypes.JSONMap {
	return datatypes.JSONMap{
		metaProcessingState:   StateSentToProcessor,
		metaSentToProcessing:  true,
		metaSentToProcessorAt: at.UTC().Format(time.RFC3339),
	}
}

// HandoffOutcomeStamp is the metadata merged after the hand-off POST.
// The outcome is diagnostic only and never drives a status change: the
// processor may still complete the work asynchronously and report
// through the webhook.
func HandoffOutcomeStamp(status int, err error) datatypes.JSONMap {
	if err != nil {
		return datatypes.JSONMap{metaHandoffError: err.Error()}
	}
	return datatypes.JSONMap{
		metaHandoffStatus: status,
		metaHandoffError:  nil,
	}
}

// MarkProcessed stamps completion.
func (m Meta) MarkProcessed(at time.Time) {
	m.set(metaProcessingState, StateCompleted)
	m.set(metaProcessedAt, at.UTC().Format(time.RFC3339))
}

// MarkFailed records the failure and its timestamp.
func (m Meta) MarkFailed(errMsg string, at time.Time) {
	m.set(metaProcessingState, StateFailed)
	m.set(metaLastError, errMsg)
	m.set(metaFailedAt, at.UTC().Format(time.RFC3339))
}

// RetryStamp is the metadata merged by the atomic retry claim: the
// single-use retry flag, its timestamp and the status being left for
// audit.
func RetryStamp(previousStatus string, at time.Time) datatypes.JSONMap {
	return datatypes.JSONMap{
		metaRetryAttempt:   1,
		metaRetryAt:        at.UTC().Format(time.RFC3339),
		metaPreviousStatus: previousStatus,
	}
}
