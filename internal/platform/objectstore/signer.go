package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"certtrack/pkg/requestcontext"
)

// HMACSigner issues upload URLs signed with a shared secret. The signature
// covers the blob path, the content type and the expiry instant, so a URL
// cannot be replayed for a different object or after its window closes.
type HMACSigner struct {
	baseURL string
	secret  []byte
}

// NewHMACSigner constructs a signer rooted at baseURL.
func NewHMACSigner(baseURL, secret string) *HMACSigner {
	return &HMACSigner{baseURL: baseURL, secret: []byte(secret)}
}

func (s *HMACSigner) IssueUploadURL(ctx context.Context, blobPath, contentType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("upload url ttl must be positive")
	}
	expires := requestcontext.Now(ctx).Add(ttl).Unix()

	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", blobPath, contentType, expires)
	sig := hex.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("content_type", contentType)
	q.Set("sig", sig)
	return s.baseURL + "/" + escapePath(blobPath) + "?" + q.Encode(), nil
}

// escapePath escapes each slash-separated segment so reserved characters in a
// file name cannot change the URL's structure. The signature still covers the
// raw blob path.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// VerifyUploadURL checks a signature produced by IssueUploadURL. The upload
// endpoint uses it to authorize incoming blob writes.
func (s *HMACSigner) VerifyUploadURL(blobPath, contentType string, expires int64, sig string, now time.Time) bool {
	if now.Unix() > expires {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", blobPath, contentType, expires)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}
