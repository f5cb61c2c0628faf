package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certtrack/internal/audit"
	certmodels "certtrack/internal/certification/models"
	certstore "certtrack/internal/certification/store"
	evidencemodels "certtrack/internal/evidence/models"
	evidenceservice "certtrack/internal/evidence/service"
	evidencestore "certtrack/internal/evidence/store"
	"certtrack/internal/magiclink/store"
	personmodels "certtrack/internal/person/models"
	personstore "certtrack/internal/person/store"
	"certtrack/internal/platform/email"
	"certtrack/internal/platform/objectstore"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/requestcontext"
)

type MagicLinkSuite struct {
	suite.Suite
	links    *store.InMemory
	certs    *certstore.InMemory
	evidence *evidencestore.InMemory
	people   *personstore.InMemory
	sender   *email.Recorder
	svc      *Service

	now      time.Time
	tenantID id.TenantID
	admin    id.Identity
	cert     *certmodels.Certification
}

func (s *MagicLinkSuite) SetupTest() {
	s.links = store.NewInMemory()
	s.certs = certstore.NewInMemory()
	s.evidence = evidencestore.NewInMemory()
	s.people = personstore.NewInMemory()
	s.sender = email.NewRecorder()

	logger := slog.New(slog.DiscardHandler)
	evidenceSvc := evidenceservice.NewService(
		s.evidence, s.certs, objectstore.NewFake(), audit.NewMemory(), nil, logger, time.Minute)
	s.svc = NewService(s.links, s.certs, s.people, evidenceSvc, s.sender,
		audit.NewMemory(), logger, "https://certtrack.test", DefaultLinkTTL)

	s.now = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	s.tenantID = id.TenantID(uuid.New())
	s.admin = id.Identity{
		TenantID: s.tenantID,
		PersonID: id.PersonID(uuid.New()),
		Roles:    []id.Role{id.RoleAdmin},
	}

	personID := id.PersonID(uuid.New())
	s.Require().NoError(s.people.Put(context.Background(), &personmodels.Person{
		ID:        personID,
		TenantID:  s.tenantID,
		SchoolID:  id.SchoolID(uuid.New()),
		FirstName: "Sam",
		LastName:  "Okafor",
		Email:     "sam.okafor@district.test",
		CreatedAt: s.now,
	}))

	cert, err := certmodels.NewCertification(
		id.CertificationID(uuid.New()), s.tenantID,
		id.SchoolID(uuid.New()), personID,
		"cpr", nil, s.now.AddDate(1, 0, 0), 30, s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.certs.Create(context.Background(), cert))
	s.cert = cert
}

func TestMagicLinkSuite(t *testing.T) {
	suite.Run(t, new(MagicLinkSuite))
}

func (s *MagicLinkSuite) asAdmin(t time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), t)
	return requestcontext.WithIdentity(ctx, s.admin)
}

// anonymous is the public upload endpoint's context: a time, no identity.
func (s *MagicLinkSuite) anonymous(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *MagicLinkSuite) issueLink() id.LinkToken {
	link, err := s.svc.IssueLink(s.asAdmin(s.now), s.cert.ID, 0)
	s.Require().NoError(err)
	return link.Token
}

func (s *MagicLinkSuite) TestIssueLinkRequiresAdmin() {
	staff := id.Identity{TenantID: s.tenantID, PersonID: s.cert.PersonID, Roles: []id.Role{id.RoleStaff}}
	ctx := requestcontext.WithIdentity(requestcontext.WithTime(context.Background(), s.now), staff)

	_, err := s.svc.IssueLink(ctx, s.cert.ID, time.Hour)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *MagicLinkSuite) TestFullUploadFlow() {
	token := s.issueLink()

	slot, err := s.svc.CreateEvidenceViaLink(s.anonymous(s.now), token, "card.pdf", "application/pdf")
	s.Require().NoError(err)
	s.Equal(s.cert.PersonID, slot.Evidence.PersonID)
	s.NotEmpty(slot.UploadURL)

	evidence, err := s.svc.FinalizeViaLink(s.anonymous(s.now.Add(time.Minute)), token, slot.Evidence.ID, "sha256:abc", 2048)
	s.Require().NoError(err)
	s.Equal(evidencemodels.EvidenceStatusComplete, evidence.Status)

	s.Run("certification now points at the uploaded evidence", func() {
		cert, err := s.certs.FindByID(context.Background(), s.tenantID, s.cert.ID)
		s.Require().NoError(err)
		s.Require().NotNil(cert.CurrentEvidenceID)
		s.Equal(evidence.ID, *cert.CurrentEvidenceID)
	})

	s.Run("the retired link refuses everything", func() {
		_, err := s.svc.CreateEvidenceViaLink(s.anonymous(s.now.Add(2*time.Minute)), token, "again.pdf", "application/pdf")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		_, err = s.svc.FinalizeViaLink(s.anonymous(s.now.Add(2*time.Minute)), token, evidence.ID, "sha256:abc", 2048)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestSingleEvidencePerLink: the second create fails even though the link was
// never finalized.
func (s *MagicLinkSuite) TestSingleEvidencePerLink() {
	token := s.issueLink()

	_, err := s.svc.CreateEvidenceViaLink(s.anonymous(s.now), token, "card.pdf", "application/pdf")
	s.Require().NoError(err)

	_, err = s.svc.CreateEvidenceViaLink(s.anonymous(s.now.Add(time.Minute)), token, "second.pdf", "application/pdf")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "already created")
}

// TestTraversalFileNameViaLink: a rejected file name must not consume the
// link's evidence slot.
func (s *MagicLinkSuite) TestTraversalFileNameViaLink() {
	token := s.issueLink()

	_, err := s.svc.CreateEvidenceViaLink(s.anonymous(s.now), token,
		"../../../../tenants/victim/evil.pdf", "application/pdf")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.CreateEvidenceViaLink(s.anonymous(s.now), token, "card.pdf", "application/pdf")
	s.NoError(err)
}

func (s *MagicLinkSuite) TestExpiredLinkRefusesBothSteps() {
	token := s.issueLink()
	afterExpiry := s.now.Add(DefaultLinkTTL + time.Hour)

	_, err := s.svc.CreateEvidenceViaLink(s.anonymous(afterExpiry), token, "card.pdf", "application/pdf")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Run("even with evidence already created", func() {
		token := s.issueLink()
		slot, err := s.svc.CreateEvidenceViaLink(s.anonymous(s.now), token, "card.pdf", "application/pdf")
		s.Require().NoError(err)

		_, err = s.svc.FinalizeViaLink(s.anonymous(afterExpiry), token, slot.Evidence.ID, "sha256:abc", 1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		// The evidence strands in pending for the admin flow to recover.
		stored, err := s.evidence.FindByID(context.Background(), s.tenantID, slot.Evidence.ID)
		s.Require().NoError(err)
		s.Equal(evidencemodels.EvidenceStatusPending, stored.Status)
	})
}

func (s *MagicLinkSuite) TestFinalizeRequiresExactEvidenceMatch() {
	token := s.issueLink()
	_, err := s.svc.CreateEvidenceViaLink(s.anonymous(s.now), token, "card.pdf", "application/pdf")
	s.Require().NoError(err)

	_, err = s.svc.FinalizeViaLink(s.anonymous(s.now), token, id.EvidenceID(uuid.New()), "sha256:abc", 1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *MagicLinkSuite) TestFinalizeBeforeCreate() {
	token := s.issueLink()

	_, err := s.svc.FinalizeViaLink(s.anonymous(s.now), token, id.EvidenceID(uuid.New()), "sha256:abc", 1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MagicLinkSuite) TestRequestReuploadEmailsTheOwner() {
	link, err := s.svc.RequestReupload(s.asAdmin(s.now), s.cert.ID)
	s.Require().NoError(err)

	sent := s.sender.Sent()
	s.Require().Len(sent, 1)
	s.Equal("sam.okafor@district.test", sent[0].To)
	s.Contains(sent[0].Subject, "cpr")
	s.True(strings.Contains(sent[0].HTMLBody, link.Token.String()))
}

func (s *MagicLinkSuite) TestUnknownToken() {
	_, err := s.svc.CreateEvidenceViaLink(s.anonymous(s.now), id.LinkToken(uuid.New()), "card.pdf", "application/pdf")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
