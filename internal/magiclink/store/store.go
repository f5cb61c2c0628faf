package store

import (
	"context"

	"certtrack/internal/magiclink/models"
	id "certtrack/pkg/domain"
)

// Store is the persistence boundary for magic links. Lookup is by token: the
// token is the identity and the capability.
type Store interface {
	Create(ctx context.Context, link *models.MagicLink) error
	FindByToken(ctx context.Context, token id.LinkToken) (*models.MagicLink, error)
	Update(ctx context.Context, link *models.MagicLink) error
	// BindEvidence sets the link's evidence id only if none is bound yet,
	// returning sentinel.ErrAlreadyUsed otherwise. The conditional write is
	// what makes the one-evidence-per-link invariant hold under concurrent
	// redemptions; a read-then-update cannot.
	BindEvidence(ctx context.Context, token id.LinkToken, evidenceID id.EvidenceID) error
}
