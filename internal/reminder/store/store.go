package store

import (
	"context"

	"certtrack/internal/reminder/models"
	id "certtrack/pkg/domain"
)

// Store is the append-only persistence boundary for reminders.
//
// Create must enforce uniqueness on the natural key (CertID,
// WindowOffsetDays, Channel) and return an error wrapping
// sentinel.ErrAlreadyUsed when the tuple exists. That constraint, not an
// application lock, is what makes concurrent dispatcher runs safe.
type Store interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	// Exists is the dispatcher's cheap fast-path check before composing and
	// sending. Create remains the authority.
	Exists(ctx context.Context, certID id.CertificationID, offsetDays int, channel models.Channel) (bool, error)
	// ListByCert returns all reminders recorded for a certification.
	ListByCert(ctx context.Context, certID id.CertificationID) ([]*models.Reminder, error)
}
