package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
)

// Promoter raises users who become organization managers to the global
// Manager role. It never demotes.
type Promoter struct {
	users     Repository
	roles     RoleLookup
	onPromote func()
}

// NewPromoter creates a Promoter. onPromote, when non-nil, is called after
// every role change.
func NewPromoter(users Repository, roles RoleLookup, onPromote func()) *Promoter {
	return &Promoter{users: users, roles: roles, onPromote: onPromote}
}

// PromoteToManager sets the user's role to Manager unless they already hold
// Admin or Manager. A missing Manager role or user is a no-op. It reports
// whether the role changed.
func (p *Promoter) PromoteToManager(ctx context.Context, userID int64) (bool, error) {
	manager, err := p.roles.GetByName(ctx, role.Manager)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("looking up manager role: %w", err)
	}

	u, err := p.users.GetByID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("looking up user: %w", err)
	}

	switch u.RoleName() {
	case role.Admin, role.Manager:
		return false, nil
	}

	if err := p.users.SetRole(ctx, userID, manager.ID); err != nil {
		return false, fmt.Errorf("promoting user: %w", err)
	}

	slog.Info("user promoted to manager", "user_id", userID, "previous_role", u.RoleName())
	if p.onPromote != nil {
		p.onPromote()
	}
	return true, nil
}
