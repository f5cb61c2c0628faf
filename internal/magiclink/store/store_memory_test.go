package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certtrack/internal/magiclink/models"
	id "certtrack/pkg/domain"
	"certtrack/pkg/platform/sentinel"
)

type LinkStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	link  *models.MagicLink
}

func (s *LinkStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()

	link, err := models.NewMagicLink(
		id.TenantID(uuid.New()), id.CertificationID(uuid.New()),
		id.PersonID(uuid.New()), time.Hour, time.Now(),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, link))
	s.link = link
}

func TestLinkStoreSuite(t *testing.T) {
	suite.Run(t, new(LinkStoreSuite))
}

// TestBindEvidenceIsConditional: the bind succeeds exactly once per link, so
// two redemptions racing past the service's read both reach the store and
// only one wins.
func (s *LinkStoreSuite) TestBindEvidenceIsConditional() {
	first := id.EvidenceID(uuid.New())
	s.Require().NoError(s.store.BindEvidence(s.ctx, s.link.Token, first))

	err := s.store.BindEvidence(s.ctx, s.link.Token, id.EvidenceID(uuid.New()))
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	stored, err := s.store.FindByToken(s.ctx, s.link.Token)
	s.Require().NoError(err)
	s.Require().NotNil(stored.EvidenceID)
	s.Equal(first, *stored.EvidenceID)
}

func (s *LinkStoreSuite) TestBindEvidenceUnknownToken() {
	err := s.store.BindEvidence(s.ctx, id.NewLinkToken(), id.EvidenceID(uuid.New()))
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *LinkStoreSuite) TestUpdateUnknownToken() {
	missing, err := models.NewMagicLink(
		s.link.TenantID, s.link.CertID, s.link.PersonID, time.Hour, time.Now(),
	)
	s.Require().NoError(err)

	err = s.store.Update(s.ctx, missing)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
