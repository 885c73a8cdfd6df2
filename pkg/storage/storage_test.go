package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"support-chat-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *Service {
	svc := NewService(config.StorageConfig{
		Endpoint:      "https://storage.test",
		Bucket:        "documents",
		SigningSecret: "test-secret",
		UploadTTL:     15 * time.Minute,
		DownloadTTL:   time.Hour,
	})
	svc.now = func() time.Time { return time.Unix(1_760_000_000, 0) }
	return svc
}

func TestIssueUploadLocator(t *testing.T) {
	svc := testService()

	locator, err := svc.IssueUploadLocator("acme", "Service Manual (v2).pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(locator.Key, "acme/"), "key is tenant-prefixed")
	assert.NotContains(t, locator.Key, " ", "unsafe characters sanitized")
	assert.NotContains(t, locator.Key, "(")
	assert.True(t, strings.HasSuffix(locator.Key, "Service_Manual_v2_.pdf") ||
		strings.HasSuffix(locator.Key, ".pdf"))

	assert.Equal(t, "https://storage.test/documents/"+locator.Key, locator.PublicURL)
	assert.Contains(t, locator.PutURL, "expires=")
	assert.Contains(t, locator.PutURL, "signature=")
}

func TestIssueUploadLocatorKeysAreUnique(t *testing.T) {
	svc := testService()

	first, err := svc.IssueUploadLocator("acme", "manual.pdf")
	require.NoError(t, err)
	second, err := svc.IssueUploadLocator("acme", "manual.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
}

func TestIssueDownloadLocatorSignature(t *testing.T) {
	svc := testService()

	signed, err := svc.IssueDownloadLocator("acme/abc-manual.pdf", 48*time.Hour)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)

	expires := parsed.Query().Get("expires")
	expectedExpiry := time.Unix(1_760_000_000, 0).Add(48 * time.Hour).Unix()
	assert.Equal(t, fmt.Sprintf("%d", expectedExpiry), expires)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	fmt.Fprintf(mac, "GET\nacme/abc-manual.pdf\n%d", expectedExpiry)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), parsed.Query().Get("signature"))
}

func TestIssueDownloadLocatorDefaultTTL(t *testing.T) {
	svc := testService()

	signed, err := svc.IssueDownloadLocator("acme/file.pdf", 0)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	expectedExpiry := time.Unix(1_760_000_000, 0).Add(time.Hour).Unix()
	assert.Equal(t, fmt.Sprintf("%d", expectedExpiry), parsed.Query().Get("expires"))
}

func TestSignURLRejectsEmptyKey(t *testing.T) {
	svc := testService()

	_, err := svc.IssueDownloadLocator("", time.Hour)
	assert.Error(t, err)
}

func TestSignaturesDifferByMethod(t *testing.T) {
	svc := testService()

	get, err := svc.IssueDownloadLocator("acme/file.pdf", time.Hour)
	require.NoError(t, err)
	put, err := svc.signURL("PUT", "acme/file.pdf", time.Hour)
	require.NoError(t, err)

	getSig := mustQuery(t, get, "signature")
	putSig := mustQuery(t, put, "signature")
	assert.NotEqual(t, getSig, putSig)
}

func mustQuery(t *testing.T, rawURL, key string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query().Get(key)
}
