package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certtrack/internal/audit"
	certmodels "certtrack/internal/certification/models"
	certstore "certtrack/internal/certification/store"
	"certtrack/internal/evidence/models"
	"certtrack/internal/evidence/store"
	"certtrack/internal/platform/objectstore"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/requestcontext"
)

type EvidenceServiceSuite struct {
	suite.Suite
	certs    *certstore.InMemory
	evidence *store.InMemory
	issuer   *objectstore.Fake
	auditlog *audit.Memory
	svc      *Service

	now      time.Time
	tenantID id.TenantID
	admin    id.Identity
	owner    id.Identity
	cert     *certmodels.Certification
}

func (s *EvidenceServiceSuite) SetupTest() {
	s.certs = certstore.NewInMemory()
	s.evidence = store.NewInMemory()
	s.issuer = objectstore.NewFake()
	s.auditlog = audit.NewMemory()
	s.svc = NewService(s.evidence, s.certs, s.issuer, s.auditlog, nil,
		slog.New(slog.DiscardHandler), time.Minute)

	s.now = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	s.tenantID = id.TenantID(uuid.New())
	ownerID := id.PersonID(uuid.New())
	s.admin = id.Identity{
		TenantID: s.tenantID,
		PersonID: id.PersonID(uuid.New()),
		Roles:    []id.Role{id.RoleAdmin},
	}
	s.owner = id.Identity{
		TenantID: s.tenantID,
		PersonID: ownerID,
		Roles:    []id.Role{id.RoleStaff},
	}

	cert, err := certmodels.NewCertification(
		id.CertificationID(uuid.New()), s.tenantID,
		id.SchoolID(uuid.New()), ownerID,
		"cpr", nil, s.now.AddDate(1, 0, 0), 30, s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.certs.Create(context.Background(), cert))
	s.cert = cert
}

func TestEvidenceServiceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceServiceSuite))
}

func (s *EvidenceServiceSuite) as(actor id.Identity) context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	return requestcontext.WithIdentity(ctx, actor)
}

func (s *EvidenceServiceSuite) completedEvidence(actor id.Identity) *models.Evidence {
	slot, err := s.svc.IssueUploadSlot(s.as(actor), s.cert.ID, "card.pdf", "application/pdf")
	s.Require().NoError(err)
	evidence, err := s.svc.FinalizeUpload(s.as(actor), slot.Evidence.ID, "sha256:abc", 2048)
	s.Require().NoError(err)
	return evidence
}

func (s *EvidenceServiceSuite) TestIssueUploadSlot() {
	slot, err := s.svc.IssueUploadSlot(s.as(s.owner), s.cert.ID, "card.pdf", "application/pdf")
	s.Require().NoError(err)

	s.Equal(models.EvidenceStatusPending, slot.Evidence.Status)
	s.NotEmpty(slot.UploadURL)

	wantPath := "tenants/" + s.tenantID.String() +
		"/people/" + s.cert.PersonID.String() +
		"/certs/" + s.cert.ID.String() +
		"/evidence/" + slot.Evidence.ID.String() + "/card.pdf"
	s.Equal(wantPath, slot.Evidence.BlobPath)
	s.Equal([]string{wantPath}, s.issuer.IssuedPaths())
}

func (s *EvidenceServiceSuite) TestIssueUploadSlotValidation() {
	s.Run("rejects disallowed extension", func() {
		_, err := s.svc.IssueUploadSlot(s.as(s.owner), s.cert.ID, "tool.exe", "application/octet-stream")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a file name that escapes the blob prefix", func() {
		_, err := s.svc.IssueUploadSlot(s.as(s.owner), s.cert.ID,
			"../../../../tenants/victim/evil.pdf", "application/pdf")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		// No record was created and no URL was signed.
		s.Empty(s.issuer.IssuedPaths())
	})

	s.Run("rejects a stranger", func() {
		stranger := id.Identity{
			TenantID: s.tenantID,
			PersonID: id.PersonID(uuid.New()),
			Roles:    []id.Role{id.RoleStaff},
		}
		_, err := s.svc.IssueUploadSlot(s.as(stranger), s.cert.ID, "card.pdf", "application/pdf")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects an admin scoped to another school", func() {
		otherSchoolAdmin := id.Identity{
			TenantID:  s.tenantID,
			PersonID:  id.PersonID(uuid.New()),
			Roles:     []id.Role{id.RoleAdmin},
			SchoolIDs: []id.SchoolID{id.SchoolID(uuid.New())},
		}
		_, err := s.svc.IssueUploadSlot(s.as(otherSchoolAdmin), s.cert.ID, "card.pdf", "application/pdf")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown certification is not found", func() {
		_, err := s.svc.IssueUploadSlot(s.as(s.owner), id.CertificationID(uuid.New()), "card.pdf", "application/pdf")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EvidenceServiceSuite) TestFinalizeUpload() {
	slot, err := s.svc.IssueUploadSlot(s.as(s.owner), s.cert.ID, "card.pdf", "application/pdf")
	s.Require().NoError(err)

	evidence, err := s.svc.FinalizeUpload(s.as(s.owner), slot.Evidence.ID, "sha256:abc", 2048)
	s.Require().NoError(err)
	s.Equal(models.EvidenceStatusComplete, evidence.Status)
	s.Equal(s.now, *evidence.UploadedAt)

	s.Run("requires checksum and positive size", func() {
		_, err := s.svc.FinalizeUpload(s.as(s.owner), slot.Evidence.ID, "", 2048)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.svc.FinalizeUpload(s.as(s.owner), slot.Evidence.ID, "sha256:abc", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("double finalize conflicts", func() {
		_, err := s.svc.FinalizeUpload(s.as(s.owner), slot.Evidence.ID, "sha256:abc", 2048)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestApproveFromPendingLeavesEverythingUntouched is the transition guard:
// a premature approval must not move the evidence or the certification.
func (s *EvidenceServiceSuite) TestApproveFromPendingLeavesEverythingUntouched() {
	slot, err := s.svc.IssueUploadSlot(s.as(s.owner), s.cert.ID, "card.pdf", "application/pdf")
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.as(s.admin), s.cert.ID, slot.Evidence.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := s.evidence.FindByID(context.Background(), s.tenantID, slot.Evidence.ID)
	s.Require().NoError(err)
	s.Equal(models.EvidenceStatusPending, stored.Status)

	cert, err := s.certs.FindByID(context.Background(), s.tenantID, s.cert.ID)
	s.Require().NoError(err)
	s.Nil(cert.CurrentEvidenceID)
}

func (s *EvidenceServiceSuite) TestApprovePointsCertAtEvidence() {
	evidence := s.completedEvidence(s.owner)

	approved, err := s.svc.Approve(s.as(s.admin), s.cert.ID, evidence.ID)
	s.Require().NoError(err)
	s.Equal(models.EvidenceStatusApproved, approved.Status)

	cert, err := s.certs.FindByID(context.Background(), s.tenantID, s.cert.ID)
	s.Require().NoError(err)
	s.Require().NotNil(cert.CurrentEvidenceID)
	s.Equal(evidence.ID, *cert.CurrentEvidenceID)

	events := s.auditlog.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.KindEvidenceApproved, events[0].Kind)
}

func (s *EvidenceServiceSuite) TestApproveRequiresAdmin() {
	evidence := s.completedEvidence(s.owner)

	_, err := s.svc.Approve(s.as(s.owner), s.cert.ID, evidence.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *EvidenceServiceSuite) TestRejectLeavesCurrentEvidenceAlone() {
	first := s.completedEvidence(s.owner)
	_, err := s.svc.Approve(s.as(s.admin), s.cert.ID, first.ID)
	s.Require().NoError(err)

	second := s.completedEvidence(s.owner)
	rejected, err := s.svc.Reject(s.as(s.admin), s.cert.ID, second.ID, "wrong document")
	s.Require().NoError(err)
	s.Equal(models.EvidenceStatusRejected, rejected.Status)
	s.Equal("wrong document", rejected.RejectionReason)

	cert, err := s.certs.FindByID(context.Background(), s.tenantID, s.cert.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, *cert.CurrentEvidenceID)
}

func (s *EvidenceServiceSuite) TestRejectRequiresReason() {
	evidence := s.completedEvidence(s.owner)
	_, err := s.svc.Reject(s.as(s.admin), s.cert.ID, evidence.ID, "  ")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *EvidenceServiceSuite) TestSetCurrent() {
	evidence := s.completedEvidence(s.owner)

	cert, err := s.svc.SetCurrent(s.as(s.admin), s.cert.ID, evidence.ID)
	s.Require().NoError(err)
	s.Equal(evidence.ID, *cert.CurrentEvidenceID)

	s.Run("pending evidence cannot be current", func() {
		slot, err := s.svc.IssueUploadSlot(s.as(s.owner), s.cert.ID, "new.pdf", "application/pdf")
		s.Require().NoError(err)
		_, err = s.svc.SetCurrent(s.as(s.admin), s.cert.ID, slot.Evidence.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("evidence from another certification is rejected", func() {
		other, err := certmodels.NewCertification(
			id.CertificationID(uuid.New()), s.tenantID,
			s.cert.SchoolID, s.owner.PersonID,
			"first-aid", nil, s.now.AddDate(1, 0, 0), 30, s.now,
		)
		s.Require().NoError(err)
		s.Require().NoError(s.certs.Create(context.Background(), other))

		_, err = s.svc.SetCurrent(s.as(s.admin), other.ID, evidence.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
