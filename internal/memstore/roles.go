package memstore

import (
	"context"
	"sort"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
)

// RoleStore implements role.Repository.
type RoleStore struct {
	db *DB
}

var _ role.Repository = (*RoleStore)(nil)

func copyRole(r *role.Role) *role.Role {
	c := *r
	return &c
}

func (s *RoleStore) List(ctx context.Context) ([]*role.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*role.Role
	for _, id := range sortedIDs(s.db.roles) {
		out = append(out, copyRole(s.db.roles[id]))
	}
	return out, nil
}

func (s *RoleStore) GetByName(ctx context.Context, name string) (*role.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if r := s.db.roleByName(name); r != nil {
		return copyRole(r), nil
	}
	return nil, apperr.NotFound("role not found")
}

// roleByName must be called with db.mu held.
func (db *DB) roleByName(name string) *role.Role {
	for _, r := range db.roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (s *RoleStore) Create(ctx context.Context, in role.CreateRoleInput) (*role.Role, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.roleByName(in.Name) != nil {
		return nil, apperr.Conflict("role already exists")
	}
	r := &role.Role{
		ID:          s.db.nextID("roles"),
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		CreatedAt:   s.db.timestamp(),
	}
	s.db.roles[r.ID] = r
	return copyRole(r), nil
}

func (s *RoleStore) ListActions(ctx context.Context, roleID int64) ([]string, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var actions []string
	for a := range s.db.permissions[roleID] {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions, nil
}

func (s *RoleStore) GrantAction(ctx context.Context, roleID int64, action string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.roles[roleID]; !ok {
		return false, apperr.NotFound("role not found")
	}
	granted, ok := s.db.permissions[roleID]
	if !ok {
		granted = make(map[string]struct{})
		s.db.permissions[roleID] = granted
	}
	if _, exists := granted[action]; exists {
		return false, nil
	}
	granted[action] = struct{}{}
	return true, nil
}

// PermissionCount returns the number of stored permission rows.
func (s *RoleStore) PermissionCount() int {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, granted := range s.db.permissions {
		n += len(granted)
	}
	return n
}
