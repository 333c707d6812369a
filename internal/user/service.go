package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
)

const minPasswordLength = 6

// RoleLookup resolves roles by name.
type RoleLookup interface {
	GetByName(ctx context.Context, name string) (*role.Role, error)
}

// Service provides validated account operations over a Repository.
type Service struct {
	repo  Repository
	roles RoleLookup
}

// NewService creates a new Service.
func NewService(repo Repository, roles RoleLookup) *Service {
	return &Service{repo: repo, roles: roles}
}

// Register creates a self-service account holding the Authenticated role.
func (s *Service) Register(ctx context.Context, in CreateUserInput) (*User, error) {
	return s.Create(ctx, in, role.Authenticated)
}

// Create validates the input and creates a user holding roleName.
func (s *Service) Create(ctx context.Context, in CreateUserInput, roleName string) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	r, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.InvalidInput("role %q does not exist", roleName)
		}
		return nil, err
	}
	in.RoleID = r.ID

	u, err := s.repo.Create(ctx, in)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("Email or Username are already taken")
		}
		return nil, err
	}
	return u, nil
}

// Authenticate checks a username-or-email and password pair.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	if identifier == "" || password == "" {
		return nil, apperr.InvalidInput("identifier and password are required")
	}

	u, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid identifier or password")
		}
		return nil, err
	}
	if !CheckPassword(u, password) {
		return nil, apperr.Unauthorized("Invalid identifier or password")
	}
	if u.Blocked {
		return nil, apperr.Forbidden("Your account has been blocked by an administrator")
	}
	return u, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// Update applies a partial update. A role name in the input is resolved to
// its id.
func (s *Service) Update(ctx context.Context, id int64, in UpdateUserInput) (*User, error) {
	if in.Email != nil {
		if _, err := mail.ParseAddress(*in.Email); err != nil {
			return nil, apperr.InvalidInput("email is invalid")
		}
	}
	if in.Password != nil && len(*in.Password) < minPasswordLength {
		return nil, apperr.InvalidInput("password must be at least %d characters", minPasswordLength)
	}
	if in.Role != nil {
		r, err := s.roles.GetByName(ctx, *in.Role)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.InvalidInput("role %q does not exist", *in.Role)
			}
			return nil, err
		}
		in.RoleID = &r.ID
	}

	u, err := s.repo.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("Email or Username are already taken")
		}
		return nil, err
	}
	return u, nil
}

func validateCreate(in CreateUserInput) error {
	if in.Username == "" {
		return apperr.InvalidInput("username is required")
	}
	if in.Email == "" {
		return apperr.InvalidInput("email is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return apperr.InvalidInput("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return apperr.InvalidInput("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
