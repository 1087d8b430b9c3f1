package agencykit

import "fmt"

// Role is the closed set of roles an actor can hold.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleHR       Role = "HR"
	RoleSales    Role = "Sales"
	RoleEmployee Role = "Employee"
	RoleClient   Role = "Client"
)

// AllRoles returns every role in a stable order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleHR, RoleSales, RoleEmployee, RoleClient}
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleSales, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", NewError(ErrInvalidRole, fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

// Actor is the authenticated identity a decision is made for.
//
// EntityID references a Client record when Role is RoleClient and an
// Employee record for every other role. The reference is not resolved here.
type Actor struct {
	UserID   string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role"`
	EntityID string `json:"entityId"`
}

// NewActor creates an Actor.
func NewActor(userID string, role Role, entityID string) *Actor {
	return &Actor{UserID: userID, Role: role, EntityID: entityID}
}

// EntityKind returns the kind of record EntityID points at.
func (a *Actor) EntityKind() ResourceKind {
	if a != nil && a.Role == RoleClient {
		return KindClient
	}
	return KindEmployee
}

// IsClient reports whether the actor is scoped to a client record.
func (a *Actor) IsClient() bool {
	return a != nil && a.Role == RoleClient
}
