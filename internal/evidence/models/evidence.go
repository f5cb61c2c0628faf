package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
)

// EvidenceStatus is the review state of an uploaded proof document.
type EvidenceStatus string

const (
	// EvidenceStatusPending means an upload slot was issued but the bytes
	// were never confirmed.
	EvidenceStatusPending EvidenceStatus = "pending"
	// EvidenceStatusComplete means the uploader confirmed checksum and size.
	EvidenceStatusComplete EvidenceStatus = "complete"
	// EvidenceStatusApproved and EvidenceStatusRejected are terminal admin
	// decisions.
	EvidenceStatusApproved EvidenceStatus = "approved"
	EvidenceStatusRejected EvidenceStatus = "rejected"
)

// transitions is the single source of truth for legal state changes. Every
// entry point (admin API, magic-link API) validates against this table
// instead of carrying its own status checks.
var transitions = map[EvidenceStatus][]EvidenceStatus{
	EvidenceStatusPending:  {EvidenceStatusComplete},
	EvidenceStatusComplete: {EvidenceStatusApproved, EvidenceStatusRejected},
	EvidenceStatusApproved: {},
	EvidenceStatusRejected: {},
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next.
func (s EvidenceStatus) CanTransitionTo(next EvidenceStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func (s EvidenceStatus) IsTerminal() bool { return len(transitions[s]) == 0 }

// OnFile reports whether this evidence may serve as a certification's current
// proof on file.
func (s EvidenceStatus) OnFile() bool {
	return s == EvidenceStatusComplete || s == EvidenceStatusApproved
}

// allowedExtensions is the fixed upload allow-list.
var allowedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".doc": true, ".docx": true,
}

// ValidateFileName rejects empty names, unsupported extensions, and anything
// that is not a single path segment. The name is interpolated into the
// tenant-scoped blob path, so separators or traversal segments would let an
// upload escape its tenant/person/cert prefix.
func ValidateFileName(fileName string) error {
	if strings.TrimSpace(fileName) == "" {
		return dErrors.New(dErrors.CodeValidation, "file name is required")
	}
	if strings.ContainsAny(fileName, `/\`) || fileName != filepath.Base(fileName) {
		return dErrors.New(dErrors.CodeValidation, "file name must not contain path separators")
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return dErrors.Newf(dErrors.CodeValidation, "unsupported file extension %q", ext)
	}
	return nil
}

// Evidence is one uploaded document offered as proof for one certification.
//
// Invariants:
//   - Size, Checksum, and UploadedAt are set together, exactly once, on the
//     pending -> complete transition
//   - approved and rejected are immutable terminal states
type Evidence struct {
	ID              id.EvidenceID      `json:"id"`
	TenantID        id.TenantID        `json:"tenant_id"`
	CertID          id.CertificationID `json:"cert_id"`
	PersonID        id.PersonID        `json:"person_id"`
	BlobPath        string             `json:"blob_path"`
	FileName        string             `json:"file_name"`
	ContentType     string             `json:"content_type"`
	Size            *int64             `json:"size,omitempty"`
	Checksum        *string            `json:"checksum,omitempty"`
	UploadedAt      *time.Time         `json:"uploaded_at,omitempty"`
	Status          EvidenceStatus     `json:"status"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewEvidence constructs a pending evidence record for a freshly issued
// upload slot.
func NewEvidence(
	evidenceID id.EvidenceID,
	tenantID id.TenantID,
	certID id.CertificationID,
	personID id.PersonID,
	blobPath, fileName, contentType string,
	now time.Time,
) (*Evidence, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(contentType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content type is required")
	}
	return &Evidence{
		ID:          evidenceID,
		TenantID:    tenantID,
		CertID:      certID,
		PersonID:    personID,
		BlobPath:    blobPath,
		FileName:    fileName,
		ContentType: contentType,
		Status:      EvidenceStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (e *Evidence) transitionErr(next EvidenceStatus) error {
	return dErrors.New(dErrors.CodeConflict,
		fmt.Sprintf("evidence is %s, cannot transition to %s", e.Status, next))
}

// CanFinalize checks the pending -> complete transition.
func (e *Evidence) CanFinalize() error {
	if !e.Status.CanTransitionTo(EvidenceStatusComplete) {
		return e.transitionErr(EvidenceStatusComplete)
	}
	return nil
}

// ApplyFinalize records the confirmed upload facts and completes the
// evidence. Call CanFinalize first.
func (e *Evidence) ApplyFinalize(checksum string, size int64, now time.Time) {
	e.Checksum = &checksum
	e.Size = &size
	e.UploadedAt = &now
	e.Status = EvidenceStatusComplete
	e.UpdatedAt = now
}

// CanApprove checks the complete -> approved transition.
func (e *Evidence) CanApprove() error {
	if !e.Status.CanTransitionTo(EvidenceStatusApproved) {
		return e.transitionErr(EvidenceStatusApproved)
	}
	return nil
}

// ApplyApprove marks the evidence approved. Call CanApprove first.
func (e *Evidence) ApplyApprove(now time.Time) {
	e.Status = EvidenceStatusApproved
	e.UpdatedAt = now
}

// CanReject checks the complete -> rejected transition.
func (e *Evidence) CanReject() error {
	if !e.Status.CanTransitionTo(EvidenceStatusRejected) {
		return e.transitionErr(EvidenceStatusRejected)
	}
	return nil
}

// ApplyReject marks the evidence rejected with the reviewer's reason. Call
// CanReject first.
func (e *Evidence) ApplyReject(reason string, now time.Time) {
	e.Status = EvidenceStatusRejected
	e.RejectionReason = reason
	e.UpdatedAt = now
}
