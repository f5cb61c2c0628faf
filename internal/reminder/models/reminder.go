package models

import (
	"time"

	"github.com/google/uuid"

	id "certtrack/pkg/domain"
)

// Channel is the delivery mechanism for a reminder.
type Channel string

// ChannelEmail is the only channel today. The idempotency key includes the
// channel so adding SMS later cannot collide with historical email rows.
const ChannelEmail Channel = "email"

// ReminderStatus records the outcome of a send attempt.
type ReminderStatus string

const (
	ReminderStatusSent   ReminderStatus = "sent"
	ReminderStatusFailed ReminderStatus = "failed"
)

// Reminder is one notification sent for one (certification, offset) pair.
//
// Invariant: at most one row may ever exist per (CertID, WindowOffsetDays,
// Channel). The store enforces this with a uniqueness constraint on create;
// the dispatcher treats "create rejected, already exists" as the success path
// for "already sent". Rows are append-only: never updated, never deleted.
type Reminder struct {
	ID                id.ReminderID      `json:"id"`
	TenantID          id.TenantID        `json:"tenant_id"`
	CertID            id.CertificationID `json:"cert_id"`
	WindowOffsetDays  int                `json:"window_offset_days"`
	Channel           Channel            `json:"channel"`
	RecipientAddress  string             `json:"recipient_address"`
	Status            ReminderStatus     `json:"status"`
	ProviderMessageID string             `json:"provider_message_id,omitempty"`
	SentAt            time.Time          `json:"sent_at"`
}

// NewSent constructs the record for a successfully delivered reminder.
func NewSent(tenantID id.TenantID, certID id.CertificationID, offsetDays int, recipient, providerMessageID string, now time.Time) *Reminder {
	return &Reminder{
		ID:                id.ReminderID(uuid.New()),
		TenantID:          tenantID,
		CertID:            certID,
		WindowOffsetDays:  offsetDays,
		Channel:           ChannelEmail,
		RecipientAddress:  recipient,
		Status:            ReminderStatusSent,
		ProviderMessageID: providerMessageID,
		SentAt:            now,
	}
}
