package store

import (
	"context"

	"certtrack/internal/person/models"
	id "certtrack/pkg/domain"
)

// Reader is the read-only persistence boundary for people. The writing side
// belongs to the surrounding admin application.
type Reader interface {
	FindByID(ctx context.Context, tenantID id.TenantID, personID id.PersonID) (*models.Person, error)
}
