package chat

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(maxRetries int) (*FallbackPolicy, *[]time.Duration) {
	policy := NewFallbackPolicy(maxRetries)
	var delays []time.Duration
	policy.sleep = func(d time.Duration) { delays = append(delays, d) }
	return policy, &delays
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	policy, delays := testPolicy(2)

	calls := 0
	body, err := policy.Do(context.Background(), func(context.Context) ([]byte, error) {
		calls++
		return []byte("ok"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), body)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	policy, delays := testPolicy(2)

	calls := 0
	boom := errors.New("connection refused")
	_, err := policy.Do(context.Background(), func(context.Context) ([]byte, error) {
		calls++
		return nil, boom
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 3, calls, "MaxRetries=2 means three attempts total")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestDoRecoversMidway(t *testing.T) {
	policy, _ := testPolicy(2)

	calls := 0
	body, err := policy.Do(context.Background(), func(context.Context) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("timeout")
		}
		return []byte("recovered"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), body)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	policy, _ := testPolicy(5)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := policy.Do(ctx, func(context.Context) ([]byte, error) {
		calls++
		cancel()
		return nil, errors.New("network down")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "no further attempts once the context is done")
}

func TestCategorizeFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, FailureTimeout},
		{"dns", &net.DNSError{Err: "lookup failed", Name: "workflow.internal"}, FailureDNS},
		{"timeout string", errors.New("request timeout"), FailureTimeout},
		{"refused", errors.New("dial tcp: connection refused"), FailureConnection},
		{"reset", errors.New("read: connection reset by peer"), FailureConnection},
		{"no host", errors.New("no such host"), FailureDNS},
		{"oversize", errors.New("request entity too large"), FailureOversize},
		{"other", errors.New("mystery"), FailureNetwork},
		{"nil", nil, FailureNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CategorizeFailure(tc.err))
		})
	}
}

func TestFallbackMessageMatchesCategory(t *testing.T) {
	policy, _ := testPolicy(0)

	result := policy.Fallback(context.DeadlineExceeded)

	assert.True(t, result.IsFallback)
	assert.Equal(t, fallbackMessages[FailureTimeout], result.Content)
	assert.Nil(t, result.ComponentData)

	result = policy.Fallback(errors.New("dial tcp: connection refused"))
	assert.Equal(t, fallbackMessages[FailureConnection], result.Content)
}

func TestNewFallbackPolicyClampsNegative(t *testing.T) {
	policy := NewFallbackPolicy(-3)
	assert.Equal(t, 0, policy.MaxRetries)
}
