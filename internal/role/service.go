package role

import (
	"context"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
)

// Service exposes read operations over roles.
type Service struct {
	repo Repository
}

// NewService creates a new Service wrapping the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every role.
func (s *Service) List(ctx context.Context) ([]*Role, error) {
	return s.repo.List(ctx)
}

// ActionsForRole returns the actions granted to the named role. An unknown
// role holds no actions.
func (s *Service) ActionsForRole(ctx context.Context, name string) ([]string, error) {
	r, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s.repo.ListActions(ctx, r.ID)
}
