package memstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
	"golang.org/x/crypto/bcrypt"
)

// UserStore implements user.Repository.
type UserStore struct {
	db *DB
}

var _ user.Repository = (*UserStore)(nil)

// userCopy must be called with db.mu held.
func (db *DB) userCopy(u *user.User) *user.User {
	c := *u
	c.Role = nil
	if roleID, ok := db.userRoles[u.ID]; ok {
		if r, ok := db.roles[roleID]; ok {
			c.Role = copyRole(r)
		}
	}
	return &c
}

// taken must be called with db.mu held.
func (db *DB) taken(username, email string, except int64) bool {
	for id, u := range db.users {
		if id == except {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *UserStore) Create(ctx context.Context, in user.CreateUserInput) (*user.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	email := strings.ToLower(in.Email)
	if s.db.taken(in.Username, email, 0) {
		return nil, apperr.Conflict("user already exists")
	}

	now := s.db.timestamp()
	u := &user.User{
		ID:           s.db.nextID("users"),
		Username:     in.Username,
		Email:        email,
		PasswordHash: hash,
		Provider:     "local",
		Confirmed:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.db.users[u.ID] = u
	if in.RoleID != 0 {
		s.db.userRoles[u.ID] = in.RoleID
	}
	return s.db.userCopy(u), nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return s.db.userCopy(u), nil
}

func (s *UserStore) GetByIdentifier(ctx context.Context, identifier string) (*user.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	email := strings.ToLower(identifier)
	for _, id := range sortedIDs(s.db.users) {
		u := s.db.users[id]
		if u.Username == identifier || u.Email == email {
			return s.db.userCopy(u), nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (s *UserStore) List(ctx context.Context) ([]*user.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*user.User
	for _, id := range sortedIDs(s.db.users) {
		out = append(out, s.db.userCopy(s.db.users[id]))
	}
	return out, nil
}

func (s *UserStore) Update(ctx context.Context, id int64, in user.UpdateUserInput) (*user.User, error) {
	var hash string
	if in.Password != nil {
		h, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}

	username, email := "", ""
	if in.Username != nil {
		username = *in.Username
	}
	if in.Email != nil {
		email = strings.ToLower(*in.Email)
	}
	if s.db.taken(username, email, id) {
		return nil, apperr.Conflict("user already exists")
	}

	if in.Username != nil {
		u.Username = username
	}
	if in.Email != nil {
		u.Email = email
	}
	if hash != "" {
		u.PasswordHash = hash
	}
	if in.Confirmed != nil {
		u.Confirmed = *in.Confirmed
	}
	if in.Blocked != nil {
		u.Blocked = *in.Blocked
	}
	if in.RoleID != nil {
		s.db.userRoles[id] = *in.RoleID
	}
	u.UpdatedAt = s.db.timestamp()
	return s.db.userCopy(u), nil
}

func (s *UserStore) SetRole(ctx context.Context, id, roleID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	s.db.userRoles[id] = roleID
	u.UpdatedAt = s.db.timestamp()
	return nil
}
