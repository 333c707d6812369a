package role

import "time"

// Global role names. Authenticated and Public are the built-in defaults for
// signed-in and anonymous callers.
const (
	Admin         = "Admin"
	Manager       = "Manager"
	Reporter      = "Reporter"
	Authenticated = "Authenticated"
	Public        = "Public"
)

// Role is a named set of permissions assigned to users.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateRoleInput holds the fields required to create a role.
type CreateRoleInput struct {
	Name        string
	Description string
	Type        string
}

// Permission grants a single action to a role.
type Permission struct {
	ID     int64  `json:"id"`
	RoleID int64  `json:"role"`
	Action string `json:"action"`
}
