package models

import (
	"time"

	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
)

// MagicLink is a single-use, time-boxed capability token that lets a person
// without a session complete one evidence upload for one certification.
//
// Invariants:
//   - at most one evidence may ever be created under a link: once EvidenceID
//     is set, further create calls are rejected even while Used is false
//   - Used flips to true on finalize; afterwards no action is permitted
//   - a link past ExpiresAt is unusable regardless of Used
type MagicLink struct {
	Token      id.LinkToken       `json:"token"`
	TenantID   id.TenantID        `json:"tenant_id"`
	CertID     id.CertificationID `json:"cert_id"`
	PersonID   id.PersonID        `json:"person_id"`
	ExpiresAt  time.Time          `json:"expires_at"`
	Used       bool               `json:"used"`
	EvidenceID *id.EvidenceID     `json:"evidence_id,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewMagicLink mints a fresh link for a certification's owner.
func NewMagicLink(tenantID id.TenantID, certID id.CertificationID, personID id.PersonID, ttl time.Duration, now time.Time) (*MagicLink, error) {
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "link ttl must be positive")
	}
	return &MagicLink{
		Token:     id.NewLinkToken(),
		TenantID:  tenantID,
		CertID:    certID,
		PersonID:  personID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// Expired reports whether the link's lifetime has passed.
func (l *MagicLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// CanCreateEvidence checks that the link may still create its one evidence.
// The uploader has no recourse besides requesting a new link, so each refusal
// carries a precise reason.
func (l *MagicLink) CanCreateEvidence(now time.Time) error {
	if l.Expired(now) {
		return dErrors.New(dErrors.CodeForbidden, "upload link has expired")
	}
	if l.Used {
		return dErrors.New(dErrors.CodeConflict, "upload link has already been used")
	}
	if l.EvidenceID != nil {
		return dErrors.New(dErrors.CodeConflict, "evidence already created for this link")
	}
	return nil
}

// ApplyEvidenceCreated consumes the link's evidence slot. Used stays false:
// the link remains finalize-able but cannot create a second evidence.
func (l *MagicLink) ApplyEvidenceCreated(evidenceID id.EvidenceID) {
	l.EvidenceID = &evidenceID
}

// CanFinalize checks that the link may finalize the given evidence. The
// evidence id must match the one bound at create time exactly; a stale or
// forged id cannot be finalized under someone else's link.
func (l *MagicLink) CanFinalize(evidenceID id.EvidenceID, now time.Time) error {
	if l.Expired(now) {
		return dErrors.New(dErrors.CodeForbidden, "upload link has expired")
	}
	if l.Used {
		return dErrors.New(dErrors.CodeConflict, "upload link has already been used")
	}
	if l.EvidenceID == nil {
		return dErrors.New(dErrors.CodeConflict, "no evidence has been created for this link")
	}
	if *l.EvidenceID != evidenceID {
		return dErrors.New(dErrors.CodeForbidden, "evidence does not belong to this link")
	}
	return nil
}

// ApplyFinalized retires the link.
func (l *MagicLink) ApplyFinalized() {
	l.Used = true
}
