package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is one of the fixed roles a user can hold
type Role string

const (
	RoleRequester     Role = "REQUESTER"
	RolePurchasing    Role = "PURCHASING"
	RoleManagement    Role = "MANAGEMENT"
	RoleAdministrator Role = "ADMINISTRATOR"
)

var validRoles = map[Role]bool{
	RoleRequester:     true,
	RolePurchasing:    true,
	RoleManagement:    true,
	RoleAdministrator: true,
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// User is the acting identity. It is owned by the identity subsystem and is
// read-only to the workflow.
type User struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	Active        bool             `json:"active"`
	Roles         []Role           `json:"roles"`
	ApprovalLimit *decimal.Decimal `json:"approval_limit,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// HasRole reports whether the user holds the given role
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthenticated reports whether the user can act at all
func (u *User) IsAuthenticated() bool {
	return u != nil && u.ID != "" && u.Active
}

// SubjectType implements permission.Subject
func (u *User) SubjectType() SubjectType {
	return SubjectUser
}
