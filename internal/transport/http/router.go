// Package httptransport assembles the HTTP API. Handlers stay thin and
// delegate to domain services; this package only decides which middleware
// guards which route group.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "certtrack/internal/certification/handler"
	evidencehandler "certtrack/internal/evidence/handler"
	linkhandler "certtrack/internal/magiclink/handler"
	"certtrack/internal/platform/middleware"
	cfghandler "certtrack/internal/tenantcfg/handler"
	"certtrack/internal/transport/http/shared"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger         *slog.Logger
	Validator      *middleware.Validator
	Certifications *certhandler.Handler
	Evidence       *evidencehandler.Handler
	Links          *linkhandler.Handler
	TenantConfig   *cfghandler.Handler
	// Readiness reports whether downstream dependencies are reachable.
	// Nil means always ready.
	Readiness func(ctx context.Context) error
}

// NewRouter wires all endpoints. Admin and staff routes sit behind JWT auth;
// magic-link routes are public, authenticated by the token in the path.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Readiness != nil {
			if err := deps.Readiness(req.Context()); err != nil {
				deps.Logger.WarnContext(req.Context(), "readiness check failed", "error", err)
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Certifications.Register(r)
		deps.Evidence.Register(r)
		deps.Links.RegisterAdmin(r)
		deps.TenantConfig.Register(r)
	})

	deps.Links.RegisterPublic(r)

	return r
}
