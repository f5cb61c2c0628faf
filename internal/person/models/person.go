package models

import (
	"time"

	id "certtrack/pkg/domain"
)

// Person is the staff member owning certifications. Person CRUD lives outside
// this core; the reminder dispatcher and the scoping checks only need reads.
type Person struct {
	ID        id.PersonID `json:"id"`
	TenantID  id.TenantID `json:"tenant_id"`
	SchoolID  id.SchoolID `json:"school_id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	CreatedAt time.Time   `json:"created_at"`
}

// FullName renders the display name used in notification emails.
func (p *Person) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
