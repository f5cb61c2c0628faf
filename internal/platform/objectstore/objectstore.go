// Package objectstore issues pre-authorized upload URLs for evidence blobs.
// The blob store itself is external; this service only hands out scoped,
// short-lived write capabilities.
package objectstore

import (
	"context"
	"time"
)

// Issuer mints a pre-authorized upload URL for a blob path. The URL is valid
// for the given ttl and bound to the declared content type.
type Issuer interface {
	IssueUploadURL(ctx context.Context, blobPath, contentType string, ttl time.Duration) (string, error)
}
