package user

import (
	"context"
	"errors"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
)

var errBlocked = errors.New("user is blocked")

// AuthAdapter adapts a user Repository to the auth.CallerLookup interface.
type AuthAdapter struct {
	store Repository
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given user store.
func NewAuthAdapter(store Repository) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// LookupCaller loads the user and resolves their role name.
func (a *AuthAdapter) LookupCaller(ctx context.Context, userID int64) (*auth.Caller, error) {
	u, err := a.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Blocked {
		return nil, errBlocked
	}
	return &auth.Caller{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.RoleName(),
	}, nil
}
