// Package service implements certification lifecycle operations. Status is
// classified immediately on every write; the sweeper only covers the passage
// of time between writes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certtrack/internal/certification/models"
	"certtrack/internal/certification/store"
	"certtrack/internal/tenantcfg/cache"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/platform/sentinel"
	"certtrack/pkg/requestcontext"
)

// Service owns certification reads and admin writes.
type Service struct {
	certs   store.Store
	configs cache.Source
	logger  *slog.Logger
}

// NewService constructs a certification service.
func NewService(certs store.Store, configs cache.Source, logger *slog.Logger) *Service {
	return &Service{certs: certs, configs: configs, logger: logger}
}

// CreateParams are the admin-supplied fields for a new certification.
type CreateParams struct {
	SchoolID    id.SchoolID
	PersonID    id.PersonID
	CertTypeKey string
	IssueDate   *time.Time
	ExpiryDate  time.Time
}

// Create records a new certification, classified under the tenant's threshold
// as of now.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Certification, error) {
	actor := requestcontext.Identity(ctx)
	if !actor.CanManageSchool(params.SchoolID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to manage certifications for this school")
	}

	cfg, err := s.configs.Get(ctx, actor.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve tenant policy")
	}

	now := requestcontext.Now(ctx)
	cert, err := models.NewCertification(
		id.CertificationID(uuid.New()),
		actor.TenantID,
		params.SchoolID,
		params.PersonID,
		params.CertTypeKey,
		params.IssueDate,
		params.ExpiryDate,
		cfg.ExpiringThresholdDays,
		now,
	)
	if err != nil {
		return nil, err
	}

	if err := s.certs.Create(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "certification already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store certification")
	}

	s.logger.InfoContext(ctx, "certification created",
		"cert_id", cert.ID,
		"tenant_id", cert.TenantID,
		"status", cert.Status,
	)
	return cert, nil
}

// Get returns one certification. Admins see their schools' records; staff see
// their own.
func (s *Service) Get(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	actor := requestcontext.Identity(ctx)
	cert, err := s.findScoped(ctx, actor, certID)
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// UpdateExpiry changes a certification's expiry date, reclassifying it in the
// same write.
func (s *Service) UpdateExpiry(ctx context.Context, certID id.CertificationID, expiry time.Time) (*models.Certification, error) {
	actor := requestcontext.Identity(ctx)
	cert, err := s.findScoped(ctx, actor, certID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageSchool(cert.SchoolID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to manage certifications for this school")
	}

	cfg, err := s.configs.Get(ctx, actor.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve tenant policy")
	}

	now := requestcontext.Now(ctx)
	if err := cert.ApplyExpiryChange(expiry, now, cfg.ExpiringThresholdDays); err != nil {
		return nil, err
	}
	if err := s.certs.Update(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store certification")
	}

	s.logger.InfoContext(ctx, "certification expiry updated",
		"cert_id", cert.ID,
		"expiry", cert.ExpiryDate.Format("2006-01-02"),
		"status", cert.Status,
	)
	return cert, nil
}

// findScoped loads a certification and enforces the actor's visibility:
// within the tenant, an admin scoped to the cert's school or the owning
// person. Out-of-scope reads report NotFound, not Forbidden, to avoid
// confirming the record exists.
func (s *Service) findScoped(ctx context.Context, actor id.Identity, certID id.CertificationID) (*models.Certification, error) {
	cert, err := s.certs.FindByID(ctx, actor.TenantID, certID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "certification not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load certification")
	}
	if actor.CanManageSchool(cert.SchoolID) || cert.PersonID == actor.PersonID {
		return cert, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
}
