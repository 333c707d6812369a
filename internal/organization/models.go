package organization

import (
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/user"
)

// Membership roles within a single organization.
const (
	MemberRoleManager  = "manager"
	MemberRoleEmployee = "employee"
)

// ValidMemberRole reports whether r is an accepted membership role.
func ValidMemberRole(r string) bool {
	return r == MemberRoleManager || r == MemberRoleEmployee
}

// Organization groups users under a shared manager.
type Organization struct {
	ID          int64      `json:"id"`
	DocumentID  string     `json:"documentId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Manager     *user.User `json:"manager"`
	Members     []*Member  `json:"organizationMembers"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Ref is the compact form of an organization embedded in related records.
type Ref struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
}

// Ref returns the compact form of o.
func (o *Organization) Ref() *Ref {
	return &Ref{ID: o.ID, DocumentID: o.DocumentID, Name: o.Name}
}

// Member links a user to an organization with a membership role.
type Member struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"-"`
	UserID         int64      `json:"-"`
	Role           string     `json:"role"`
	User           *user.User `json:"user,omitempty"`
	Organization   *Ref       `json:"organization,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// CreateInput holds the fields accepted when creating an organization.
// Manager is a user id made the organization's manager.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Manager     *int64 `json:"manager,omitempty"`
}

// UpdateInput holds optional fields for a partial organization update.
type UpdateInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Manager     *int64  `json:"manager,omitempty"`
}
