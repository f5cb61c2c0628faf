// Package service exposes tenant policy reads and admin updates.
package service

import (
	"context"
	"errors"
	"log/slog"

	"certtrack/internal/tenantcfg/models"
	"certtrack/internal/tenantcfg/store"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/platform/sentinel"
	"certtrack/pkg/requestcontext"
)

// Service owns the tenant policy surface.
type Service struct {
	configs store.Store
	logger  *slog.Logger
}

// NewService constructs a tenant config service.
func NewService(configs store.Store, logger *slog.Logger) *Service {
	return &Service{configs: configs, logger: logger}
}

// Get returns the tenant's effective policy. Tenants that never customized
// get defaults; nothing is persisted by a read.
func (s *Service) Get(ctx context.Context) (*models.TenantConfig, error) {
	actor := requestcontext.Identity(ctx)
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}

	cfg, err := s.configs.FindByTenant(ctx, actor.TenantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.NewDefault(actor.TenantID, requestcontext.Now(ctx)), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load tenant config")
	}
	return cfg, nil
}

// UpdateParams are the admin-supplied policy fields.
type UpdateParams struct {
	ReminderOffsetDays    []int
	ExpiringThresholdDays int
}

// Update replaces the tenant's policy. Jobs observe the change within one
// cache TTL.
func (s *Service) Update(ctx context.Context, params UpdateParams) (*models.TenantConfig, error) {
	actor := requestcontext.Identity(ctx)
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}

	cfg := &models.TenantConfig{
		TenantID:              actor.TenantID,
		ReminderOffsetDays:    params.ReminderOffsetDays,
		ExpiringThresholdDays: params.ExpiringThresholdDays,
		UpdatedAt:             requestcontext.Now(ctx),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Normalize()

	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store tenant config")
	}

	s.logger.InfoContext(ctx, "tenant config updated",
		"tenant_id", cfg.TenantID,
		"threshold_days", cfg.ExpiringThresholdDays,
		"offsets", cfg.ReminderOffsetDays,
	)
	return cfg, nil
}
