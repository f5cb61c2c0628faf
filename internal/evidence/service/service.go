// Package service implements the evidence upload and review operations. Every
// operation checks scope and state before mutating anything; a rejected check
// leaves both the evidence and its certification untouched.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"certtrack/internal/audit"
	certmodels "certtrack/internal/certification/models"
	certstore "certtrack/internal/certification/store"
	"certtrack/internal/evidence/models"
	"certtrack/internal/evidence/store"
	"certtrack/internal/platform/metrics"
	"certtrack/internal/platform/objectstore"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/platform/sentinel"
	"certtrack/pkg/requestcontext"
)

// DefaultUploadURLTTL bounds how long an issued upload URL stays valid.
const DefaultUploadURLTTL = 15 * time.Minute

// Service owns the evidence state machine.
type Service struct {
	evidence  store.Store
	certs     certstore.Store
	issuer    objectstore.Issuer
	auditlog  audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	uploadTTL time.Duration
}

// NewService constructs an evidence service. auditlog and m may be nil.
func NewService(
	evidence store.Store,
	certs certstore.Store,
	issuer objectstore.Issuer,
	auditlog audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	uploadTTL time.Duration,
) *Service {
	if uploadTTL <= 0 {
		uploadTTL = DefaultUploadURLTTL
	}
	return &Service{
		evidence:  evidence,
		certs:     certs,
		issuer:    issuer,
		auditlog:  auditlog,
		metrics:   m,
		logger:    logger,
		uploadTTL: uploadTTL,
	}
}

// UploadSlot is a freshly issued upload destination.
type UploadSlot struct {
	Evidence  *models.Evidence
	UploadURL string
}

// IssueUploadSlot creates a pending evidence record and hands out a scoped,
// short-lived upload URL for its blob path.
func (s *Service) IssueUploadSlot(ctx context.Context, certID id.CertificationID, fileName, contentType string) (*UploadSlot, error) {
	actor := requestcontext.Identity(ctx)
	cert, err := s.loadCert(ctx, actor.TenantID, certID)
	if err != nil {
		return nil, err
	}
	if !s.canActOn(actor, cert) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to upload evidence for this certification")
	}

	now := requestcontext.Now(ctx)
	evidenceID := id.EvidenceID(uuid.New())
	blobPath := fmt.Sprintf("tenants/%s/people/%s/certs/%s/evidence/%s/%s",
		cert.TenantID, cert.PersonID, cert.ID, evidenceID, fileName)

	evidence, err := models.NewEvidence(evidenceID, cert.TenantID, cert.ID, cert.PersonID,
		blobPath, fileName, contentType, now)
	if err != nil {
		return nil, err
	}
	if err := s.evidence.Create(ctx, evidence); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store evidence")
	}

	uploadURL, err := s.issuer.IssueUploadURL(ctx, blobPath, contentType, s.uploadTTL)
	if err != nil {
		// The pending record strands; the admin flow recovers it like any
		// abandoned upload.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue upload url")
	}

	s.logger.InfoContext(ctx, "upload slot issued",
		"evidence_id", evidence.ID,
		"cert_id", cert.ID,
		"file_name", fileName,
	)
	return &UploadSlot{Evidence: evidence, UploadURL: uploadURL}, nil
}

// FinalizeUpload records the uploader's confirmation that the bytes landed.
// The checksum is taken as declared; review closes the trust gap.
func (s *Service) FinalizeUpload(ctx context.Context, evidenceID id.EvidenceID, checksum string, size int64) (*models.Evidence, error) {
	actor := requestcontext.Identity(ctx)
	if strings.TrimSpace(checksum) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "checksum is required")
	}
	if size <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "size must be positive")
	}

	evidence, err := s.loadEvidence(ctx, actor.TenantID, evidenceID)
	if err != nil {
		return nil, err
	}
	cert, err := s.loadCert(ctx, actor.TenantID, evidence.CertID)
	if err != nil {
		return nil, err
	}
	if !s.canActOn(actor, cert) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to modify evidence for this certification")
	}

	if err := evidence.CanFinalize(); err != nil {
		return nil, err
	}
	evidence.ApplyFinalize(checksum, size, requestcontext.Now(ctx))
	if err := s.evidence.Update(ctx, evidence); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store evidence")
	}

	s.logger.InfoContext(ctx, "evidence upload finalized",
		"evidence_id", evidence.ID,
		"cert_id", evidence.CertID,
		"size", size,
	)
	return evidence, nil
}

// Approve accepts a completed evidence as the certification's proof on file.
func (s *Service) Approve(ctx context.Context, certID id.CertificationID, evidenceID id.EvidenceID) (*models.Evidence, error) {
	actor := requestcontext.Identity(ctx)
	cert, evidence, err := s.loadForReview(ctx, actor, certID, evidenceID)
	if err != nil {
		return nil, err
	}

	if err := evidence.CanApprove(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	evidence.ApplyApprove(now)
	if err := s.evidence.Update(ctx, evidence); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store evidence")
	}
	cert.ApplyCurrentEvidence(evidence.ID, now)
	if err := s.certs.Update(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store certification")
	}

	s.metrics.IncEvidenceDecision("approved")
	s.publish(ctx, actor, audit.KindEvidenceApproved, evidence, nil)
	s.logger.InfoContext(ctx, "evidence approved",
		"evidence_id", evidence.ID,
		"cert_id", cert.ID,
	)
	return evidence, nil
}

// Reject declines a completed evidence. The certification's current evidence
// pointer is left alone.
func (s *Service) Reject(ctx context.Context, certID id.CertificationID, evidenceID id.EvidenceID, reason string) (*models.Evidence, error) {
	actor := requestcontext.Identity(ctx)
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	_, evidence, err := s.loadForReview(ctx, actor, certID, evidenceID)
	if err != nil {
		return nil, err
	}

	if err := evidence.CanReject(); err != nil {
		return nil, err
	}
	evidence.ApplyReject(reason, requestcontext.Now(ctx))
	if err := s.evidence.Update(ctx, evidence); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store evidence")
	}

	s.metrics.IncEvidenceDecision("rejected")
	s.publish(ctx, actor, audit.KindEvidenceRejected, evidence, map[string]string{"reason": reason})
	s.logger.InfoContext(ctx, "evidence rejected",
		"evidence_id", evidence.ID,
		"cert_id", evidence.CertID,
	)
	return evidence, nil
}

// SetCurrent points the certification at an existing evidence as an admin
// override. The target must be on file (complete or approved).
func (s *Service) SetCurrent(ctx context.Context, certID id.CertificationID, evidenceID id.EvidenceID) (*certmodels.Certification, error) {
	actor := requestcontext.Identity(ctx)
	cert, evidence, err := s.loadForReview(ctx, actor, certID, evidenceID)
	if err != nil {
		return nil, err
	}
	if !evidence.Status.OnFile() {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"evidence is %s, cannot serve as current proof", evidence.Status)
	}

	cert.ApplyCurrentEvidence(evidence.ID, requestcontext.Now(ctx))
	if err := s.certs.Update(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store certification")
	}

	s.publish(ctx, actor, audit.KindEvidenceCurrent, evidence, nil)
	s.logger.InfoContext(ctx, "current evidence set",
		"evidence_id", evidence.ID,
		"cert_id", cert.ID,
	)
	return cert, nil
}

// Get returns one evidence record under the actor's scope.
func (s *Service) Get(ctx context.Context, evidenceID id.EvidenceID) (*models.Evidence, error) {
	actor := requestcontext.Identity(ctx)
	evidence, err := s.loadEvidence(ctx, actor.TenantID, evidenceID)
	if err != nil {
		return nil, err
	}
	cert, err := s.loadCert(ctx, actor.TenantID, evidence.CertID)
	if err != nil {
		return nil, err
	}
	if !s.canActOn(actor, cert) {
		return nil, dErrors.New(dErrors.CodeNotFound, "evidence not found")
	}
	return evidence, nil
}

// loadForReview loads a cert/evidence pair for an admin decision and verifies
// scope and linkage.
func (s *Service) loadForReview(ctx context.Context, actor id.Identity, certID id.CertificationID, evidenceID id.EvidenceID) (*certmodels.Certification, *models.Evidence, error) {
	cert, err := s.loadCert(ctx, actor.TenantID, certID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.CanManageSchool(cert.SchoolID) {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "not permitted to review evidence for this school")
	}
	evidence, err := s.loadEvidence(ctx, actor.TenantID, evidenceID)
	if err != nil {
		return nil, nil, err
	}
	if evidence.CertID != cert.ID {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "evidence does not belong to this certification")
	}
	return cert, evidence, nil
}

func (s *Service) loadCert(ctx context.Context, tenantID id.TenantID, certID id.CertificationID) (*certmodels.Certification, error) {
	cert, err := s.certs.FindByID(ctx, tenantID, certID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "certification not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load certification")
	}
	return cert, nil
}

func (s *Service) loadEvidence(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (*models.Evidence, error) {
	evidence, err := s.evidence.FindByID(ctx, tenantID, evidenceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "evidence not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load evidence")
	}
	return evidence, nil
}

// canActOn reports whether the actor may touch evidence under this
// certification: an admin scoped to its school, or the owning person.
func (s *Service) canActOn(actor id.Identity, cert *certmodels.Certification) bool {
	return actor.CanManageSchool(cert.SchoolID) || (!actor.PersonID.IsNil() && cert.PersonID == actor.PersonID)
}

func (s *Service) publish(ctx context.Context, actor id.Identity, kind audit.Kind, evidence *models.Evidence, details map[string]string) {
	if s.auditlog == nil {
		return
	}
	event := audit.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		TenantID:   evidence.TenantID,
		Subject:    evidence.ID.String(),
		Actor:      actor.PersonID.String(),
		OccurredAt: requestcontext.Now(ctx),
		Details:    details,
	}
	if err := s.auditlog.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "kind", kind, "error", err)
	}
}
