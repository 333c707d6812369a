// Package access holds the authorization policies and the action-level
// permission gate applied in front of the API handlers.
package access

import (
	"context"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
)

// AdminOrManager reports whether the caller holds the Admin or Manager role.
func AdminOrManager(caller *auth.Caller) bool {
	return caller.IsAdmin() || caller.IsManager()
}

// ManagerChecker reports whether a user manages an organization identified
// by document id. Unknown organizations must yield false without error.
type ManagerChecker interface {
	IsManager(ctx context.Context, organizationID string, userID int64) (bool, error)
}

// OrgManagerPolicy admits Admins and managers of the target organization.
type OrgManagerPolicy struct {
	orgs ManagerChecker
}

// NewOrgManagerPolicy creates a policy backed by orgs.
func NewOrgManagerPolicy(orgs ManagerChecker) *OrgManagerPolicy {
	return &OrgManagerPolicy{orgs: orgs}
}

// Allow reports whether caller may manage the organization's members.
func (p *OrgManagerPolicy) Allow(ctx context.Context, caller *auth.Caller, organizationID string) (bool, error) {
	if caller == nil {
		return false, nil
	}
	if caller.IsAdmin() {
		return true, nil
	}
	return p.orgs.IsManager(ctx, organizationID, caller.ID)
}
