package role

import (
	"context"
	"fmt"

	"github.com/Ksenialiashchuk/test-portal/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence contract for roles and their permissions.
type Repository interface {
	List(ctx context.Context) ([]*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, in CreateRoleInput) (*Role, error)
	ListActions(ctx context.Context, roleID int64) ([]string, error)
	// GrantAction inserts the permission unless it already exists and
	// reports whether a row was written.
	GrantAction(ctx context.Context, roleID int64, action string) (bool, error)
}

// Store provides database operations for roles and permissions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new role store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// List returns all roles ordered by id.
func (s *Store) List(ctx context.Context) ([]*Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, type, created_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r := &Role{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Type, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning role row: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// GetByName retrieves a role by its unique name.
func (s *Store) GetByName(ctx context.Context, name string) (*Role, error) {
	r := &Role{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, type, created_at FROM roles WHERE name = $1`, name,
	).Scan(&r.ID, &r.Name, &r.Description, &r.Type, &r.CreatedAt)
	if err != nil {
		return nil, database.Wrap(err, "getting role by name", "role")
	}
	return r, nil
}

// Create inserts a new role.
func (s *Store) Create(ctx context.Context, in CreateRoleInput) (*Role, error) {
	r := &Role{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, type) VALUES ($1, $2, $3)
		 RETURNING id, name, description, type, created_at`,
		in.Name, in.Description, in.Type,
	).Scan(&r.ID, &r.Name, &r.Description, &r.Type, &r.CreatedAt)
	if err != nil {
		return nil, database.Wrap(err, "creating role", "role")
	}
	return r, nil
}

// ListActions returns the action identifiers granted to a role.
func (s *Store) ListActions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT action FROM permissions WHERE role_id = $1 ORDER BY action`, roleID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scanning permission row: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// GrantAction inserts a permission row, ignoring one that already exists.
func (s *Store) GrantAction(ctx context.Context, roleID int64, action string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO permissions (role_id, action) VALUES ($1, $2)
		 ON CONFLICT (role_id, action) DO NOTHING`,
		roleID, action,
	)
	if err != nil {
		return false, fmt.Errorf("granting permission: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
