package chat

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Failure categories for transport-level errors on the workflow call.
const (
	FailureTimeout    = "timeout"
	FailureConnection = "connection"
	FailureDNS        = "dns"
	FailureOversize   = "oversize"
	FailureNetwork    = "network"
)

// Category-specific fallback messages. Users get actionable guidance:
// "rephrase" for oversized or overly complex requests, "temporarily
// unavailable" for connectivity problems.
var fallbackMessages = map[string]string{
	FailureTimeout:    "The assistant is taking longer than expected to answer. Your question may be complex; please try again, or rephrase it more specifically.",
	FailureConnection: "The assistant service is temporarily unavailable. Please try again in a few minutes.",
	FailureDNS:        "The assistant service could not be reached. Please try again in a few minutes.",
	FailureOversize:   "That request was too large to handle in one turn. Please try a shorter or simpler question.",
	FailureNetwork:    "Something went wrong reaching the assistant. Please try again.",
}

// FallbackPolicy retries a transport-failed workflow call with
// exponential backoff before degrading to a category-specific message.
// Malformed-but-received payloads are not its concern; those go through
// the normalizer.
type FallbackPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseDelay seeds the backoff sequence (BaseDelay, 2x, 4x, ...).
	BaseDelay time.Duration
	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// NewFallbackPolicy creates a policy with the given retry budget.
func NewFallbackPolicy(maxRetries int) *FallbackPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &FallbackPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		sleep:      time.Sleep,
	}
}

// Do runs fn up to MaxRetries+1 times. It returns fn's first successful
// result, or the last error once the budget is exhausted.
func (p *FallbackPolicy) Do(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if p.sleep != nil {
				p.sleep(delay)
			}
		}

		body, err := fn(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// Fallback builds the degraded reply for an exhausted transport failure.
func (p *FallbackPolicy) Fallback(err error) Normalized {
	return Normalized{
		Content:    fallbackMessages[CategorizeFailure(err)],
		IsFallback: true,
	}
}

// CategorizeFailure maps a transport error to a failure category.
func CategorizeFailure(err error) string {
	if err == nil {
		return FailureNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return FailureTimeout
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset"):
		return FailureConnection
	case strings.Contains(msg, "no such host"):
		return FailureDNS
	case strings.Contains(msg, "too large") || strings.Contains(msg, "out of memory") || strings.Contains(msg, "entity too large"):
		return FailureOversize
	default:
		return FailureNetwork
	}
}
