// Package domain holds shared domain primitives: typed identifiers and the
// resolved actor identity. Typed IDs prevent cross-type assignment at compile
// time (a CertificationID can never be passed where an EvidenceID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "certtrack/pkg/domain-errors"
)

type (
	// TenantID identifies a district workspace. Every entity is scoped by it.
	TenantID uuid.UUID
	// SchoolID identifies a school within a tenant.
	SchoolID uuid.UUID
	// PersonID identifies a staff member within a tenant.
	PersonID uuid.UUID
	// CertificationID identifies one credential held by one person.
	CertificationID uuid.UUID
	// EvidenceID identifies one uploaded proof document.
	EvidenceID uuid.UUID
	// ReminderID identifies one sent notification record.
	ReminderID uuid.UUID
	// LinkToken is the single-use capability token for remote uploads.
	// The token itself is the identifier.
	LinkToken uuid.UUID
)

func (id TenantID) String() string        { return uuid.UUID(id).String() }
func (id SchoolID) String() string        { return uuid.UUID(id).String() }
func (id PersonID) String() string        { return uuid.UUID(id).String() }
func (id CertificationID) String() string { return uuid.UUID(id).String() }
func (id EvidenceID) String() string      { return uuid.UUID(id).String() }
func (id ReminderID) String() string      { return uuid.UUID(id).String() }
func (t LinkToken) String() string        { return uuid.UUID(t).String() }

func (id TenantID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SchoolID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CertificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (t LinkToken) IsNil() bool        { return uuid.UUID(t) == uuid.Nil }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseTenantID validates and returns a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s)
	return TenantID(u), err
}

// ParseSchoolID validates and returns a SchoolID.
func ParseSchoolID(s string) (SchoolID, error) {
	u, err := parseUUID(s)
	return SchoolID(u), err
}

// ParsePersonID validates and returns a PersonID.
func ParsePersonID(s string) (PersonID, error) {
	u, err := parseUUID(s)
	return PersonID(u), err
}

// ParseCertificationID validates and returns a CertificationID.
func ParseCertificationID(s string) (CertificationID, error) {
	u, err := parseUUID(s)
	return CertificationID(u), err
}

// ParseEvidenceID validates and returns an EvidenceID.
func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseUUID(s)
	return EvidenceID(u), err
}

// ParseLinkToken validates and returns a LinkToken.
func ParseLinkToken(s string) (LinkToken, error) {
	u, err := parseUUID(s)
	return LinkToken(u), err
}

// NewLinkToken mints a fresh capability token.
func NewLinkToken() LinkToken { return LinkToken(uuid.New()) }
