package organization

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
)

// UserLookup resolves users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// RolePromoter is invoked after a user gains a manager membership.
type RolePromoter interface {
	PromoteToManager(ctx context.Context, userID int64) (bool, error)
}

// Service implements scoped reads and membership mutations over a
// Repository.
type Service struct {
	repo             Repository
	users            UserLookup
	promoter         RolePromoter
	onPromoteFailure func()
}

// NewService creates a new Service. onPromoteFailure, when non-nil, is
// called whenever the promotion hook returns an error.
func NewService(repo Repository, users UserLookup, promoter RolePromoter, onPromoteFailure func()) *Service {
	return &Service{repo: repo, users: users, promoter: promoter, onPromoteFailure: onPromoteFailure}
}

// List returns the organizations visible to caller. Admins see every
// organization; everyone else sees the organizations they belong to, in
// membership order.
func (s *Service) List(ctx context.Context, caller *auth.Caller) ([]*Organization, error) {
	var orgs []*Organization

	switch {
	case caller == nil:
		return []*Organization{}, nil
	case caller.IsAdmin():
		all, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		orgs = all
	default:
		memberships, err := s.repo.ListMembershipsByUser(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(memberships))
		for _, m := range memberships {
			o, err := s.repo.GetByID(ctx, m.OrganizationID)
			if err != nil {
				if apperr.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			if seen[o.DocumentID] {
				continue
			}
			seen[o.DocumentID] = true
			orgs = append(orgs, o)
		}
	}

	for _, o := range orgs {
		if err := s.populate(ctx, o); err != nil {
			return nil, err
		}
	}
	if orgs == nil {
		orgs = []*Organization{}
	}
	return orgs, nil
}

// Get returns a single organization. Non-admin callers must be a member.
func (s *Service) Get(ctx context.Context, caller *auth.Caller, documentID string) (*Organization, error) {
	o, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if !caller.IsAdmin() {
		if caller == nil {
			return nil, apperr.Forbidden("You do not have access to this organization")
		}
		if _, err := s.repo.GetMember(ctx, o.ID, caller.ID); err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.Forbidden("You do not have access to this organization")
			}
			return nil, err
		}
	}

	if err := s.populate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Create validates the input and creates an organization, optionally
// assigning its manager.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Organization, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.InvalidInput("name is required")
	}

	if in.Manager != nil {
		if _, err := s.findUser(ctx, *in.Manager); err != nil {
			return nil, err
		}
	}

	o, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.Manager != nil {
		if _, err := s.setManager(ctx, o, *in.Manager); err != nil {
			return nil, err
		}
	}

	if err := s.populate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Update applies a partial update. A manager in the input is upserted as a
// manager membership; existing managers are left in place.
func (s *Service) Update(ctx context.Context, documentID string, in UpdateInput) (*Organization, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return nil, apperr.InvalidInput("name cannot be empty")
		}
		in.Name = &trimmed
	}
	if in.Manager != nil {
		if _, err := s.findUser(ctx, *in.Manager); err != nil {
			return nil, err
		}
	}

	o, err := s.repo.Update(ctx, documentID, in)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Organization not found")
		}
		return nil, err
	}

	if in.Manager != nil {
		if _, err := s.setManager(ctx, o, *in.Manager); err != nil {
			return nil, err
		}
	}

	if err := s.populate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Delete removes an organization.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	if err := s.repo.Delete(ctx, documentID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Organization not found")
		}
		return err
	}
	return nil
}

// Members returns an organization's memberships and its manager.
func (s *Service) Members(ctx context.Context, documentID string) (*Organization, error) {
	o, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// AddMember creates a membership. role defaults to employee.
func (s *Service) AddMember(ctx context.Context, documentID string, userID int64, role string) (*Member, error) {
	if userID <= 0 {
		return nil, apperr.InvalidInput("userId is required")
	}
	if role == "" {
		role = MemberRoleEmployee
	}
	if !ValidMemberRole(role) {
		return nil, apperr.InvalidInput("role must be manager or employee")
	}

	u, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	o, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetMember(ctx, o.ID, userID); err == nil {
		return nil, apperr.Conflict("User is already a member of this organization")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	m, err := s.repo.AddMember(ctx, o.ID, userID, role)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("User is already a member of this organization")
		}
		return nil, err
	}

	if m.Role == MemberRoleManager {
		s.promote(ctx, userID)
	}

	m.User = u
	m.Organization = o.Ref()
	return m, nil
}

// UpdateMemberRole changes the role of an existing membership.
func (s *Service) UpdateMemberRole(ctx context.Context, documentID string, userID int64, role string) (*Member, error) {
	if !ValidMemberRole(role) {
		return nil, apperr.InvalidInput("role must be manager or employee")
	}

	o, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.UpdateMemberRole(ctx, o.ID, userID, role)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Membership not found")
		}
		return nil, err
	}

	if m.Role == MemberRoleManager {
		s.promote(ctx, userID)
	}

	if u, err := s.users.GetByID(ctx, userID); err == nil {
		m.User = u
	}
	m.Organization = o.Ref()
	return m, nil
}

// RemoveMember deletes a membership.
func (s *Service) RemoveMember(ctx context.Context, documentID string, userID int64) error {
	o, err := s.find(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, o.ID, userID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Membership not found")
		}
		return err
	}
	return nil
}

// IsManager reports whether userID holds a manager membership in the
// organization. An unknown organization yields false.
func (s *Service) IsManager(ctx context.Context, documentID string, userID int64) (bool, error) {
	o, err := s.repo.GetByDocumentID(ctx, documentID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	m, err := s.repo.GetMember(ctx, o.ID, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return m.Role == MemberRoleManager, nil
}

// setManager upserts a manager membership for userID and runs the promotion
// hook.
func (s *Service) setManager(ctx context.Context, o *Organization, userID int64) (*Member, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}

	m, err := s.repo.GetMember(ctx, o.ID, userID)
	switch {
	case err == nil && m.Role != MemberRoleManager:
		m, err = s.repo.UpdateMemberRole(ctx, o.ID, userID, MemberRoleManager)
		if err != nil {
			return nil, err
		}
	case err == nil:
	case apperr.IsNotFound(err):
		m, err = s.repo.AddMember(ctx, o.ID, userID, MemberRoleManager)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.promote(ctx, userID)
	return m, nil
}

func (s *Service) promote(ctx context.Context, userID int64) {
	if s.promoter == nil {
		return
	}
	if _, err := s.promoter.PromoteToManager(ctx, userID); err != nil {
		slog.Error("manager promotion failed", "user_id", userID, "error", err)
		if s.onPromoteFailure != nil {
			s.onPromoteFailure()
		}
	}
}

func (s *Service) find(ctx context.Context, documentID string) (*Organization, error) {
	o, err := s.repo.GetByDocumentID(ctx, documentID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Organization not found")
		}
		return nil, err
	}
	return o, nil
}

func (s *Service) findUser(ctx context.Context, userID int64) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return u, nil
}

// populate attaches members with their users, and the earliest manager.
func (s *Service) populate(ctx context.Context, o *Organization) error {
	members, err := s.repo.ListMembers(ctx, o.ID)
	if err != nil {
		return err
	}

	o.Manager = nil
	for _, m := range members {
		u, err := s.users.GetByID(ctx, m.UserID)
		if err != nil && !apperr.IsNotFound(err) {
			return err
		}
		m.User = u
		if o.Manager == nil && m.Role == MemberRoleManager && u != nil {
			o.Manager = u
		}
	}

	if members == nil {
		members = []*Member{}
	}
	o.Members = members
	return nil
}
