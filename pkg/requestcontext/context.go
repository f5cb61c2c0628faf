// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Values are set by middleware (or by job runners and
// tests) and consumed by services, which therefore never depend on net/http.
//
// Usage in services:
//
//	actor := requestcontext.Identity(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests and scheduled jobs:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithIdentity(ctx, admin)
package requestcontext

import (
	"context"
	"time"

	id "certtrack/pkg/domain"
)

type (
	identityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyIdentity    = identityKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Identity retrieves the resolved actor identity from the context.
// Returns the zero Identity if not set.
func Identity(ctx context.Context) id.Identity {
	if actor, ok := ctx.Value(ContextKeyIdentity).(id.Identity); ok {
		return actor
	}
	return id.Identity{}
}

// WithIdentity injects a resolved actor identity into the context.
func WithIdentity(ctx context.Context, actor id.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts that did not inject one. Scheduled jobs
// inject a single time per run so every record written in a sweep or dispatch
// shares one observation instant.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by scheduled jobs for
// batch consistency and by tests for determinism.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
