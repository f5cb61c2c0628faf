// Package httpserver builds the API server with timeouts suited to a
// JSON-over-HTTP service whose slowest handlers wait on Postgres and SendGrid.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the given handler. Per-request deadlines are
// enforced by the router's timeout middleware; these guard the connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
