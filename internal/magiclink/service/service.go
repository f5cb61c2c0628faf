// Package service implements the magic-link upload protocol: admin-issued,
// single-use capability tokens that let a person without a session complete
// one evidence upload.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certtrack/internal/audit"
	certmodels "certtrack/internal/certification/models"
	certstore "certtrack/internal/certification/store"
	evidencemodels "certtrack/internal/evidence/models"
	evidenceservice "certtrack/internal/evidence/service"
	"certtrack/internal/magiclink/models"
	"certtrack/internal/magiclink/store"
	personstore "certtrack/internal/person/store"
	"certtrack/internal/platform/email"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/platform/sentinel"
	"certtrack/pkg/requestcontext"
)

// DefaultLinkTTL is the link lifetime when the issuer does not choose one.
const DefaultLinkTTL = 72 * time.Hour

// Service owns link issuance and the two-step redemption protocol.
type Service struct {
	links    store.Store
	certs    certstore.Store
	people   personstore.Reader
	evidence *evidenceservice.Service
	sender   email.Sender
	auditlog audit.Publisher
	logger   *slog.Logger

	baseURL    string
	defaultTTL time.Duration
}

// NewService constructs a magic-link service. auditlog may be nil.
func NewService(
	links store.Store,
	certs certstore.Store,
	people personstore.Reader,
	evidence *evidenceservice.Service,
	sender email.Sender,
	auditlog audit.Publisher,
	logger *slog.Logger,
	baseURL string,
	defaultTTL time.Duration,
) *Service {
	if defaultTTL <= 0 {
		defaultTTL = DefaultLinkTTL
	}
	return &Service{
		links:      links,
		certs:      certs,
		people:     people,
		evidence:   evidence,
		sender:     sender,
		auditlog:   auditlog,
		logger:     logger,
		baseURL:    baseURL,
		defaultTTL: defaultTTL,
	}
}

// IssueLink mints a link for a certification's owning person. A non-positive
// ttl falls back to the service default.
func (s *Service) IssueLink(ctx context.Context, certID id.CertificationID, ttl time.Duration) (*models.MagicLink, error) {
	actor := requestcontext.Identity(ctx)
	cert, err := s.loadCert(ctx, actor.TenantID, certID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageSchool(cert.SchoolID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to issue upload links for this school")
	}

	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := requestcontext.Now(ctx)
	link, err := models.NewMagicLink(cert.TenantID, cert.ID, cert.PersonID, ttl, now)
	if err != nil {
		return nil, err
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store magic link")
	}

	s.publish(ctx, audit.KindLinkIssued, link, map[string]string{
		"issued_by": actor.PersonID.String(),
	})
	s.logger.InfoContext(ctx, "upload link issued",
		"cert_id", cert.ID,
		"expires_at", link.ExpiresAt,
	)
	return link, nil
}

// RequestReupload issues a fresh link for the certification and emails it to
// the owning person. The stored link stays valid even if delivery fails, so
// the admin can resend or copy the URL out of the response.
func (s *Service) RequestReupload(ctx context.Context, certID id.CertificationID) (*models.MagicLink, error) {
	link, err := s.IssueLink(ctx, certID, 0)
	if err != nil {
		return nil, err
	}
	actor := requestcontext.Identity(ctx)
	cert, err := s.loadCert(ctx, actor.TenantID, certID)
	if err != nil {
		return nil, err
	}
	person, err := s.people.FindByID(ctx, actor.TenantID, cert.PersonID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "certification owner not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load person")
	}

	subject, body := composeReuploadEmail(person.FullName(), cert.CertTypeKey, s.uploadURL(link), link.ExpiresAt)
	if _, err := s.sender.Send(ctx, person.Email, subject, body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "send re-upload email")
	}

	s.logger.InfoContext(ctx, "re-upload requested",
		"cert_id", cert.ID,
		"person_id", cert.PersonID,
	)
	return link, nil
}

// CreateEvidenceViaLink redeems the link's single evidence slot: it issues an
// upload slot under the link's scope and binds the new evidence to the link.
// The link is not consumed yet; that happens on finalize.
func (s *Service) CreateEvidenceViaLink(ctx context.Context, token id.LinkToken, fileName, contentType string) (*evidenceservice.UploadSlot, error) {
	link, err := s.loadLink(ctx, token)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := link.CanCreateEvidence(now); err != nil {
		return nil, err
	}

	slot, err := s.evidence.IssueUploadSlot(s.linkScope(ctx, link), link.CertID, fileName, contentType)
	if err != nil {
		return nil, err
	}

	// The conditional bind is the authority on the one-evidence invariant:
	// a concurrent redemption that bound first wins, and this call's pending
	// evidence strands for the admin flow to clean up.
	if err := s.links.BindEvidence(ctx, link.Token, slot.Evidence.ID); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "evidence already created for this link")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store magic link")
	}

	s.logger.InfoContext(ctx, "evidence created via link",
		"cert_id", link.CertID,
		"evidence_id", slot.Evidence.ID,
	)
	return slot, nil
}

// FinalizeViaLink completes the upload bound to the link, promotes the
// evidence to the certification's current proof (the issuing admin's intent
// stands in for the approval gate), and retires the link.
func (s *Service) FinalizeViaLink(ctx context.Context, token id.LinkToken, evidenceID id.EvidenceID, checksum string, size int64) (*evidencemodels.Evidence, error) {
	link, err := s.loadLink(ctx, token)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := link.CanFinalize(evidenceID, now); err != nil {
		return nil, err
	}

	evidence, err := s.evidence.FinalizeUpload(s.linkScope(ctx, link), evidenceID, checksum, size)
	if err != nil {
		return nil, err
	}

	cert, err := s.loadCert(ctx, link.TenantID, link.CertID)
	if err != nil {
		return nil, err
	}
	cert.ApplyCurrentEvidence(evidence.ID, now)
	if err := s.certs.Update(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store certification")
	}

	link.ApplyFinalized()
	if err := s.links.Update(ctx, link); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store magic link")
	}

	s.publish(ctx, audit.KindLinkRedeemed, link, map[string]string{
		"evidence_id": evidence.ID.String(),
	})
	s.logger.InfoContext(ctx, "upload finalized via link",
		"cert_id", link.CertID,
		"evidence_id", evidence.ID,
	)
	return evidence, nil
}

// linkScope builds the execution context the link stands for: the owning
// person acting on their own certification. Evidence-service ownership checks
// then apply unchanged.
func (s *Service) linkScope(ctx context.Context, link *models.MagicLink) context.Context {
	return requestcontext.WithIdentity(ctx, id.Identity{
		TenantID: link.TenantID,
		PersonID: link.PersonID,
		Roles:    []id.Role{id.RoleStaff},
	})
}

func (s *Service) uploadURL(link *models.MagicLink) string {
	return s.baseURL + "/upload/" + link.Token.String()
}

func (s *Service) loadLink(ctx context.Context, token id.LinkToken) (*models.MagicLink, error) {
	link, err := s.links.FindByToken(ctx, token)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "upload link not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load magic link")
	}
	return link, nil
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

func (s *Service) publish(ctx context.Context, kind audit.Kind, link *models.MagicLink, details map[string]string) {
	if s.auditlog == nil {
		return
	}
	event := audit.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		TenantID:   link.TenantID,
		Subject:    link.CertID.String(),
		OccurredAt: requestcontext.Now(ctx),
		Details:    details,
	}
	if err := s.auditlog.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "kind", kind, "error", err)
	}
}
