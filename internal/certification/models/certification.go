package models

import (
	"strings"
	"time"

	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
)

// CertStatus is the persisted classification of a certification relative to
// its expiry date.
type CertStatus string

const (
	CertStatusValid    CertStatus = "valid"
	CertStatusExpiring CertStatus = "expiring"
	CertStatusExpired  CertStatus = "expired"
)

// StartOfDayUTC truncates t to midnight UTC. Classification works on calendar
// days, not wall-clock elapsed time, so a certification's status cannot flip
// mid-day because of timezone or DST drift.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysToExpiry returns the whole calendar days between now and expiry in UTC.
// Negative once the expiry day has fully passed.
func DaysToExpiry(expiry, now time.Time) int {
	diff := StartOfDayUTC(expiry).Sub(StartOfDayUTC(now))
	return int(diff.Hours() / 24)
}

// ClassifyStatus maps an expiry date to a status under the tenant's threshold.
//
// daysToExpiry < 0             -> expired
// daysToExpiry < thresholdDays -> expiring
// otherwise                    -> valid
//
// The comparison at the threshold is strict: a certification expiring exactly
// thresholdDays out is still valid. One expiring today is expiring; it only
// becomes expired once the day has fully passed (so with threshold 0 a
// certification is valid through its expiry day and expired the day after).
func ClassifyStatus(expiry, now time.Time, thresholdDays int) CertStatus {
	days := DaysToExpiry(expiry, now)
	switch {
	case days < 0:
		return CertStatusExpired
	case days < thresholdDays:
		return CertStatusExpiring
	default:
		return CertStatusValid
	}
}

// Certification is one credential held by one person.
//
// Invariants:
//   - ExpiryDate is required; IssueDate, when present, is not after it
//   - Status is always derivable from ExpiryDate and the tenant threshold as
//     of StatusComputedAt; staleness is bounded by the sweeper's period
//   - CurrentEvidenceID, when set, references evidence in state complete or
//     approved (enforced at the service layer, which sees both records)
type Certification struct {
	ID                id.CertificationID `json:"id"`
	TenantID          id.TenantID        `json:"tenant_id"`
	SchoolID          id.SchoolID        `json:"school_id"`
	PersonID          id.PersonID        `json:"person_id"`
	CertTypeKey       string             `json:"cert_type_key"`
	IssueDate         *time.Time         `json:"issue_date,omitempty"`
	ExpiryDate        time.Time          `json:"expiry_date"`
	Status            CertStatus         `json:"status"`
	StatusComputedAt  time.Time          `json:"status_computed_at"`
	CurrentEvidenceID *id.EvidenceID     `json:"current_evidence_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewCertification constructs a certification and classifies it immediately,
// so a freshly created record never waits for the next sweep.
func NewCertification(
	certID id.CertificationID,
	tenantID id.TenantID,
	schoolID id.SchoolID,
	personID id.PersonID,
	certTypeKey string,
	issueDate *time.Time,
	expiryDate time.Time,
	thresholdDays int,
	now time.Time,
) (*Certification, error) {
	certTypeKey = strings.TrimSpace(certTypeKey)
	if certTypeKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "cert type key is required")
	}
	if tenantID.IsNil() || schoolID.IsNil() || personID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant, school, and person are required")
	}
	if expiryDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "expiry date is required")
	}
	if issueDate != nil && issueDate.After(expiryDate) {
		return nil, dErrors.New(dErrors.CodeValidation, "issue date must not be after expiry date")
	}
	return &Certification{
		ID:               certID,
		TenantID:         tenantID,
		SchoolID:         schoolID,
		PersonID:         personID,
		CertTypeKey:      certTypeKey,
		IssueDate:        issueDate,
		ExpiryDate:       expiryDate,
		Status:           ClassifyStatus(expiryDate, now, thresholdDays),
		StatusComputedAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Reclassify recomputes the status under the given threshold and applies it
// when it differs from the stored one. Returns true when a write is needed.
func (c *Certification) Reclassify(now time.Time, thresholdDays int) bool {
	next := ClassifyStatus(c.ExpiryDate, now, thresholdDays)
	if next == c.Status {
		return false
	}
	c.Status = next
	c.StatusComputedAt = now
	c.UpdatedAt = now
	return true
}

// ApplyExpiryChange updates the expiry date and reclassifies immediately.
func (c *Certification) ApplyExpiryChange(expiry time.Time, now time.Time, thresholdDays int) error {
	if expiry.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "expiry date is required")
	}
	if c.IssueDate != nil && c.IssueDate.After(expiry) {
		return dErrors.New(dErrors.CodeValidation, "issue date must not be after expiry date")
	}
	c.ExpiryDate = expiry
	c.Status = ClassifyStatus(expiry, now, thresholdDays)
	c.StatusComputedAt = now
	c.UpdatedAt = now
	return nil
}

// ApplyCurrentEvidence points the certification at its authoritative proof on
// file. The caller is responsible for checking the evidence's state.
func (c *Certification) ApplyCurrentEvidence(evidenceID id.EvidenceID, now time.Time) {
	c.CurrentEvidenceID = &evidenceID
	c.UpdatedAt = now
}
