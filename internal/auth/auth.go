package auth

import (
	"context"

	"github.com/Ksenialiashchuk/test-portal/internal/role"
)

// Caller is the authenticated user a request acts on behalf of. Role is the
// name of the user's global role, resolved once per request.
type Caller struct {
	ID       int64
	Username string
	Email    string
	Role     string
}

// IsAdmin returns true if the caller holds the Admin role.
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == role.Admin
}

// IsManager returns true if the caller holds the Manager role.
func (c *Caller) IsManager() bool {
	return c != nil && c.Role == role.Manager
}

// RoleName returns the caller's role, or Public for an anonymous request.
func (c *Caller) RoleName() string {
	if c == nil || c.Role == "" {
		return role.Public
	}
	return c.Role
}

// CallerLookup resolves a user id carried by a token into a Caller.
type CallerLookup interface {
	LookupCaller(ctx context.Context, userID int64) (*Caller, error)
}
