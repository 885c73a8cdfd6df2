package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"support-chat-service/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.JWTConfig

// UserClaims represents the JWT claims carried by inbound bearer tokens
// and by the short-lived tokens issued for outbound workflow calls.
type UserClaims struct {
	Email      string `json:"email,omitempty"`
	UserID     uint   `json:"user_id"`
	TenantID   uint   `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug,omitempty"`
	Role       string `json:"role,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Initialize sets the package-level JWT configuration
func Initialize(c *config.JWTConfig) {
	cfg = c
}

// GenerateToken creates a long-lived JWT token for an authenticated user
func GenerateToken(email string, userID uint, tenantID uint, role string) (string, error) {
	if cfg == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := UserClaims{
		Email:    email,
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// GenerateWorkflowToken creates a short-lived token binding a
// user+tenant+session identity for calls to the AI workflow engine and
// the document processor.
func GenerateWorkflowToken(userID uint, tenantID uint, tenantSlug string, sessionID string) (string, error) {
	if cfg == nil {
		return "", errors.New("JWT configuration not provided")
	}

	ttl := cfg.WorkflowTokenTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	claims := UserClaims{
		UserID:     userID,
		TenantID:   tenantID,
		TenantSlug: tenantSlug,
		SessionID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// ValidateToken validates and parses a JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
