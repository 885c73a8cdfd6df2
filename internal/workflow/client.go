// Package workflow is the HTTP client for the external AI workflow
// engine. The engine is a black box reached with one POST per chat turn,
// authenticated by a short-lived signed token; its response shape is
// untyped and handled by the chat normalizer.
package workflow

import (
	"context"
	"fmt"
	"time"

	"support-chat-service/internal/chat"
	"support-chat-service/pkg/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ChatRequest is the body of one chat-turn call to the workflow.
type ChatRequest struct {
	Message          string            `json:"message"`
	Context          string            `json:"context,omitempty"`
	History          []HistoryTurn     `json:"history,omitempty"`
	EntityHints      chat.EntityHints  `json:"entityHints"`
	TenantID         uint              `json:"tenantId"`
	TenantSlug       string            `json:"tenantSlug"`
	UserID           uint              `json:"userId"`
	SessionID        string            `json:"sessionId"`
	TechnicalDomains []string          `json:"technicalDomains,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// HistoryTurn is one prior message forwarded for continuity.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client posts chat turns to the workflow engine.
type Client struct {
	httpClient *resty.Client
	chatURL    string
	logger     *zap.Logger
}

// NewClient creates a workflow client. The timeout is deliberately much
// longer than a normal web request: the engine may run multi-step
// reasoning before replying. Retries live in the fallback policy, not
// here, so attempt counting stays in one place.
func NewClient(cfg *config.WorkflowConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		chatURL:    cfg.ChatURL,
		logger:     logger,
	}
}

// Send posts one chat turn and returns the raw response body. Transport
// errors and non-2xx statuses come back as errors; the body of a 2xx is
// returned untouched for the normalizer.
func (c *Client) Send(ctx context.Context, token string, req *ChatRequest) ([]byte, error) {
	c.logger.Info("Calling AI workflow",
		zap.Uint("tenant_id", req.TenantID),
		zap.Uint("user_id", req.UserID),
		zap.String("session_id", req.SessionID),
	)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(req).
		Post(c.chatURL)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("workflow returned status %d", resp.StatusCode())
	}

	return resp.Body(), nil
}
