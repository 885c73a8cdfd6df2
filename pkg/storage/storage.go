// Package storage issues time-limited signed URLs against an
// S3-compatible object store. Only locator issuance lives here; file
// bytes never pass through this service.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"support-chat-service/pkg/config"

	"github.com/google/uuid"
)

// UploadLocator is a one-time destination for a client-side upload.
type UploadLocator struct {
	Key       string `json:"key"`
	PutURL    string `json:"putUrl"`
	PublicURL string `json:"publicUrl"`
}

// Service signs storage URLs with the configured shared secret.
type Service struct {
	cfg config.StorageConfig
	now func() time.Time
}

// NewService creates a storage locator service.
func NewService(cfg config.StorageConfig) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// IssueUploadLocator builds a fresh storage key under the tenant's
// prefix and a short-lived signed PUT URL for it.
func (s *Service) IssueUploadLocator(tenantSlug, filename string) (*UploadLocator, error) {
	safe := unsafeChars.ReplaceAllString(filename, "_")
	key := fmt.Sprintf("%s/%s-%s", tenantSlug, uuid.New().String()[:8], safe)

	putURL, err := s.signURL("PUT", key, s.cfg.UploadTTL)
	if err != nil {
		return nil, err
	}

	return &UploadLocator{
		Key:       key,
		PutURL:    putURL,
		PublicURL: s.objectURL(key),
	}, nil
}

// IssueDownloadLocator signs a GET URL for an existing object. End-user
// access uses the configured download TTL; processor hand-off passes a
// longer one.
func (s *Service) IssueDownloadLocator(key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.DownloadTTL
	}
	return s.signURL("GET", key, ttl)
}

func (s *Service) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
}

func (s *Service) signURL(method, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}

	expires := s.now().Add(ttl).Unix()
	mac := hmac.New(sha256.New, []byte(s.cfg.SigningSecret))
	fmt.Fprintf(mac, "%s\n%s\n%d", method, key, expires)
	signature := hex.EncodeToString(mac.Sum(nil))

	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expires, 10))
	query.Set("signature", signature)

	return s.objectURL(key) + "?" + query.Encode(), nil
}
