package models

// Role is the permission profile supplied by the identity provider
type Role string

// Role constants
const (
	RoleApplicant     Role = "APPLICANT"
	RoleAdminReviewer Role = "ADMIN_REVIEWER"
	RoleTechReviewer  Role = "TECH_REVIEWER"
	RoleInspector     Role = "INSPECTOR"
	RoleAdministrator Role = "ADMINISTRATOR"
	// RoleSystem is used for ledger entries written by background work
	RoleSystem Role = "SYSTEM"
)

// IsValidRole checks if the role is one an authenticated actor may hold
func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleApplicant, RoleAdminReviewer, RoleTechReviewer, RoleInspector, RoleAdministrator:
		return true
	}
	return false
}

// Actor is the authenticated caller of an operation
type Actor struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SystemActor attributes background mutations such as licence delivery
var SystemActor = Actor{ID: "system", Role: RoleSystem, Name: "system"}

// IsStaff reports whether the actor works for the permitting office
func (a Actor) IsStaff() bool {
	return a.Role != RoleApplicant && a.Role != ""
}
