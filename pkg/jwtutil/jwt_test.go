package jwtutil

import (
	"testing"
	"time"

	"support-chat-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestConfig(t *testing.T) {
	t.Helper()
	Initialize(&config.JWTConfig{
		SigningKey:       "unit-test-key",
		ExpirationHours:  1,
		WorkflowTokenTTL: 5 * time.Minute,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	initTestConfig(t)

	token, err := GenerateToken("agent@acme.test", 7, 3, "SUPPORT_AGENT")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent@acme.test", claims.Email)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, uint(3), claims.TenantID)
	assert.Equal(t, "SUPPORT_AGENT", claims.Role)
}

func TestWorkflowTokenCarriesSessionIdentity(t *testing.T) {
	initTestConfig(t)

	token, err := GenerateWorkflowToken(7, 3, "acme", "conv-42")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "acme", claims.TenantSlug)
	assert.Equal(t, "conv-42", claims.SessionID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 30*time.Second)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	initTestConfig(t)

	token, err := GenerateToken("agent@acme.test", 7, 3, "SUPPORT_AGENT")
	require.NoError(t, err)

	_, err = ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	initTestConfig(t)
	token, err := GenerateToken("agent@acme.test", 7, 3, "SUPPORT_AGENT")
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "different-key", ExpirationHours: 1})
	defer initTestConfig(t)

	_, err = ValidateToken(token)
	assert.Error(t, err)
}
