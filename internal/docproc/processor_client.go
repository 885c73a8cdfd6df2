package docproc

import (
	"context"
	"time"

	"support-chat-service/pkg/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HandoffRequest is the body posted to the external document processor.
// Both the permanent and a time-limited signed URL are included so the
// processor can fetch the file either way.
type HandoffRequest struct {
	DocumentID   uint   `json:"documentId"`
	Name         string `json:"name"`
	PermanentURL string `json:"permanentUrl"`
	TemporaryURL string `json:"temporaryUrl"`
	TenantID     uint   `json:"tenantId"`
	TenantSlug   string `json:"tenantSlug"`
	UserID       uint   `json:"userId"`
	MimeType     string `json:"mimeType,omitempty"`
	Namespace    string `json:"namespace,omitempty"`
}

// ProcessorClient posts hand-offs to the external document processor.
type ProcessorClient struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewProcessorClient creates a processor client.
func NewProcessorClient(cfg *config.ProcessorConfig, logger *zap.Logger) *ProcessorClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &ProcessorClient{
		httpClient: client,
		url:        cfg.URL,
		logger:     logger,
	}
}

// Send posts the hand-off and returns the HTTP status code. A non-2xx
// status is not an error here: the processor may still complete the
// work and report through the webhook, so the status is diagnostic
// only. Transport failures are returned as errors.
func (c *ProcessorClient) Send(ctx context.Context, token string, req *HandoffRequest) (int, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(req).
		Post(c.url)
	if err != nil {
		return 0, err
	}

	if resp.IsError() {
		c.logger.Warn("Processor returned non-2xx for handoff",
			zap.Uint("document_id", req.DocumentID),
			zap.Int("status", resp.StatusCode()))
	}

	return resp.StatusCode(), nil
}
