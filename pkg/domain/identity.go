package domain

// Role names a coarse permission level carried by the identity assertion.
type Role string

const (
	// RoleAdmin manages certifications, evidence review, and tenant policy.
	RoleAdmin Role = "admin"
	// RoleStaff is a certified staff member acting on their own records.
	RoleStaff Role = "staff"
)

// Identity is the already-authenticated actor as produced by the tenant/
// identity resolver. Services perform tenant/school/ownership scoping on top
// of it; they never re-verify the assertion itself.
type Identity struct {
	TenantID TenantID
	PersonID PersonID // nil UUID when the actor is not linked to a person
	Roles    []Role
	// SchoolIDs limits an admin to specific schools. Empty means the whole
	// tenant.
	SchoolIDs []SchoolID
}

// HasRole reports whether the identity carries the given role.
func (a Identity) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity can perform admin actions in its tenant.
func (a Identity) IsAdmin() bool { return a.HasRole(RoleAdmin) }

// CanManageSchool reports whether an admin's scope covers the given school.
func (a Identity) CanManageSchool(schoolID SchoolID) bool {
	if !a.IsAdmin() {
		return false
	}
	if len(a.SchoolIDs) == 0 {
		return true
	}
	for _, s := range a.SchoolIDs {
		if s == schoolID {
			return true
		}
	}
	return false
}
