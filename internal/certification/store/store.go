// Package store persists certifications. Implementations follow the store
// error contract: sentinel.ErrNotFound for missing records, wrapped
// infrastructure errors otherwise.
package store

import (
	"context"
	"time"

	"certtrack/internal/certification/models"
	id "certtrack/pkg/domain"
)

// Store is the persistence boundary for certifications.
type Store interface {
	Create(ctx context.Context, cert *models.Certification) error
	// FindByID is a tenant-scoped point read.
	FindByID(ctx context.Context, tenantID id.TenantID, certID id.CertificationID) (*models.Certification, error)
	Update(ctx context.Context, cert *models.Certification) error
	// ListAll returns every certification across tenants, for the sweeper.
	ListAll(ctx context.Context) ([]*models.Certification, error)
	// ListByExpiryWindow returns certifications whose expiry falls in
	// [from, to), across tenants, for the reminder dispatcher.
	ListByExpiryWindow(ctx context.Context, from, to time.Time) ([]*models.Certification, error)
}
