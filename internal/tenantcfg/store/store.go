package store

import (
	"context"

	"certtrack/internal/tenantcfg/models"
	id "certtrack/pkg/domain"
)

// Store persists per-tenant policy. FindByTenant returns sentinel.ErrNotFound
// for tenants that never customized their policy; callers fall back to
// defaults.
type Store interface {
	FindByTenant(ctx context.Context, tenantID id.TenantID) (*models.TenantConfig, error)
	Upsert(ctx context.Context, cfg *models.TenantConfig) error
}
