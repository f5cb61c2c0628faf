package store

import (
	"context"

	"certtrack/internal/evidence/models"
	id "certtrack/pkg/domain"
)

// Store is the persistence boundary for evidence records.
type Store interface {
	Create(ctx context.Context, evidence *models.Evidence) error
	FindByID(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (*models.Evidence, error)
	Update(ctx context.Context, evidence *models.Evidence) error
}
