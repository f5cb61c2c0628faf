// Package audit records compliance-relevant domain events: evidence review
// decisions, reminder sends and magic-link issuance. Events are published
// fire-and-forget; the domain operation never fails because the audit trail
// lagged.
package audit

import (
	"time"

	id "certtrack/pkg/domain"
)

// Kind names a category of auditable event.
type Kind string

const (
	KindEvidenceApproved Kind = "evidence.approved"
	KindEvidenceRejected Kind = "evidence.rejected"
	KindEvidenceCurrent  Kind = "evidence.set_current"
	KindReminderSent     Kind = "reminder.sent"
	KindLinkIssued       Kind = "link.issued"
	KindLinkRedeemed     Kind = "link.redeemed"
)

// Event is one audit record. Subject identifies the primary record acted on;
// Details carries kind-specific context.
type Event struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	TenantID   id.TenantID       `json:"tenant_id"`
	Subject    string            `json:"subject"`
	Actor      string            `json:"actor,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Details    map[string]string `json:"details,omitempty"`
}
