// Package sweeper recomputes certification statuses as calendar days pass.
// Writes happen only on change, so a steady-state run touches nothing and a
// second run in the same instant is a no-op.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"certtrack/internal/certification/store"
	"certtrack/internal/platform/metrics"
	"certtrack/internal/tenantcfg/cache"
	"certtrack/pkg/requestcontext"
)

var tracer = otel.Tracer("certtrack/internal/certification/sweeper")

// Sweeper reclassifies every certification under its tenant's threshold.
type Sweeper struct {
	certs   store.Store
	configs cache.Source
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New constructs a sweeper. The config source is injected per scheduler wiring
// so each deployment owns its cache lifetime.
func New(certs store.Store, configs cache.Source, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	return &Sweeper{certs: certs, configs: configs, metrics: m, logger: logger}
}

// Sweep runs one pass and returns how many certifications changed status.
// Per-item failures are logged and skipped; the run itself only fails when the
// listing does.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "sweeper.Sweep")
	defer span.End()

	now := requestcontext.Now(ctx)
	certs, err := s.certs.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list certifications: %w", err)
	}

	updated, failed := 0, 0
	for _, cert := range certs {
		cfg, err := s.configs.Get(ctx, cert.TenantID)
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep: resolve tenant policy failed",
				"cert_id", cert.ID, "tenant_id", cert.TenantID, "error", err)
			failed++
			continue
		}
		if !cert.Reclassify(now, cfg.ExpiringThresholdDays) {
			continue
		}
		if err := s.certs.Update(ctx, cert); err != nil {
			s.logger.ErrorContext(ctx, "sweep: persist status failed",
				"cert_id", cert.ID, "status", cert.Status, "error", err)
			failed++
			continue
		}
		updated++
	}

	s.metrics.IncSweepRuns()
	s.metrics.AddCertStatusTransitions(updated)
	span.SetAttributes(
		attribute.Int("certs.scanned", len(certs)),
		attribute.Int("certs.updated", updated),
		attribute.Int("certs.failed", failed),
	)
	s.logger.InfoContext(ctx, "sweep complete",
		"scanned", len(certs), "updated", updated, "failed", failed)
	return updated, nil
}
