package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
)

type MagicLinkModelSuite struct {
	suite.Suite
	now  time.Time
	link *MagicLink
}

func (s *MagicLinkModelSuite) SetupTest() {
	s.now = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

	link, err := NewMagicLink(
		id.TenantID(uuid.New()), id.CertificationID(uuid.New()),
		id.PersonID(uuid.New()), 72*time.Hour, s.now,
	)
	s.Require().NoError(err)
	s.link = link
}

func TestMagicLinkModelSuite(t *testing.T) {
	suite.Run(t, new(MagicLinkModelSuite))
}

func (s *MagicLinkModelSuite) TestNewMagicLink() {
	s.False(s.link.Token.IsNil())
	s.Equal(s.now.Add(72*time.Hour), s.link.ExpiresAt)
	s.False(s.link.Used)
	s.Nil(s.link.EvidenceID)

	_, err := NewMagicLink(s.link.TenantID, s.link.CertID, s.link.PersonID, 0, s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *MagicLinkModelSuite) TestExpiryBoundary() {
	s.False(s.link.Expired(s.link.ExpiresAt.Add(-time.Second)))
	// ExpiresAt itself is already past the lifetime.
	s.True(s.link.Expired(s.link.ExpiresAt))
}

func (s *MagicLinkModelSuite) TestCreateThenFinalizeLifecycle() {
	evidenceID := id.EvidenceID(uuid.New())

	s.Require().NoError(s.link.CanCreateEvidence(s.now))
	s.link.ApplyEvidenceCreated(evidenceID)

	s.Run("a second create is refused before finalize", func() {
		err := s.link.CanCreateEvidence(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("finalize demands the bound evidence id", func() {
		err := s.link.CanFinalize(id.EvidenceID(uuid.New()), s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Require().NoError(s.link.CanFinalize(evidenceID, s.now))
	s.link.ApplyFinalized()

	s.Run("a used link refuses both actions", func() {
		s.Error(s.link.CanCreateEvidence(s.now))

		err := s.link.CanFinalize(evidenceID, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *MagicLinkModelSuite) TestFinalizeWithoutEvidence() {
	err := s.link.CanFinalize(id.EvidenceID(uuid.New()), s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MagicLinkModelSuite) TestExpiryTrumpsEverything() {
	evidenceID := id.EvidenceID(uuid.New())
	s.link.ApplyEvidenceCreated(evidenceID)
	late := s.link.ExpiresAt.Add(time.Hour)

	err := s.link.CanCreateEvidence(late)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.link.CanFinalize(evidenceID, late)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
