package models

import (
	"slices"
	"time"

	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
)

// DefaultExpiringThresholdDays applies when a tenant has no stored config.
const DefaultExpiringThresholdDays = 30

// DefaultReminderOffsetDays is both the default tenant policy and the
// dispatcher's scan universe: configured tenant offsets filter this set, they
// never expand it. A tenant cannot receive reminders at an offset the
// dispatcher does not scan.
func DefaultReminderOffsetDays() []int { return []int{60, 30, 7, 1, 0} }

// TenantConfig is the per-tenant reminder and classification policy.
// Read-mostly; consumed through a bounded-TTL cache by the scheduled jobs.
type TenantConfig struct {
	TenantID              id.TenantID `json:"tenant_id"`
	ReminderOffsetDays    []int       `json:"reminder_offset_days"`
	ExpiringThresholdDays int         `json:"expiring_threshold_days"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// NewDefault returns the config a tenant starts with when its workspace is
// created.
func NewDefault(tenantID id.TenantID, now time.Time) *TenantConfig {
	return &TenantConfig{
		TenantID:              tenantID,
		ReminderOffsetDays:    DefaultReminderOffsetDays(),
		ExpiringThresholdDays: DefaultExpiringThresholdDays,
		UpdatedAt:             now,
	}
}

// Validate enforces policy invariants: offsets are non-negative, sorted
// descending, and deduplicated; the threshold is non-negative.
func (c *TenantConfig) Validate() error {
	if c.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tenant id is required")
	}
	if c.ExpiringThresholdDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "expiring threshold must not be negative")
	}
	seen := make(map[int]bool, len(c.ReminderOffsetDays))
	for _, offset := range c.ReminderOffsetDays {
		if offset < 0 {
			return dErrors.New(dErrors.CodeValidation, "reminder offsets must not be negative")
		}
		if seen[offset] {
			return dErrors.New(dErrors.CodeValidation, "reminder offsets must be unique")
		}
		seen[offset] = true
	}
	return nil
}

// Normalize sorts offsets descending so stored policies read the way they
// fire: furthest-out reminder first.
func (c *TenantConfig) Normalize() {
	slices.SortFunc(c.ReminderOffsetDays, func(a, b int) int { return b - a })
}

// WantsOffset reports whether the tenant opted in to reminders at the given
// day offset.
func (c *TenantConfig) WantsOffset(offset int) bool {
	return slices.Contains(c.ReminderOffsetDays, offset)
}
