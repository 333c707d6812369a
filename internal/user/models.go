package user

import (
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/role"
)

// User represents a registered user account. Secrets never serialize.
type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Provider           string     `json:"provider"`
	Confirmed          bool       `json:"confirmed"`
	Blocked            bool       `json:"blocked"`
	ResetPasswordToken *string    `json:"-"`
	ConfirmationToken  *string    `json:"-"`
	Role               *role.Role `json:"role,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// RoleName returns the name of the user's role, or "" when none is set.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// CreateUserInput holds the fields required to create a new user. RoleID of
// zero leaves the user without a role.
type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   int64  `json:"-"`
}

// UpdateUserInput holds optional fields for a partial user update. Role is a
// role name and is resolved by the service.
type UpdateUserInput struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	Confirmed *bool   `json:"confirmed,omitempty"`
	Blocked   *bool   `json:"blocked,omitempty"`
	Role      *string `json:"role,omitempty"`
	RoleID    *int64  `json:"-"`
}
