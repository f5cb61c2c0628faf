package testutil

import (
	"net/http"
	"time"

	id "certtrack/pkg/domain"
	"certtrack/pkg/requestcontext"
)

// WithIdentity stamps an actor identity onto the request context, simulating
// what the auth middleware does for an authenticated request.
func WithIdentity(req *http.Request, actor id.Identity) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), actor))
}

// AtTime pins the request-scoped clock, simulating the request time
// middleware with a deterministic instant.
func AtTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
