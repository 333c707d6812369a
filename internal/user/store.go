package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/database"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Repository is the persistence contract for users. Returned users carry
// their role.
type Repository interface {
	Create(ctx context.Context, in CreateUserInput) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id int64, in UpdateUserInput) (*User, error)
	SetRole(ctx context.Context, id, roleID int64) error
}

// Store provides database operations for users.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new user store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectUser = `SELECT u.id, u.username, u.email, u.password_hash, u.provider,
	u.confirmed, u.blocked, u.reset_password_token, u.confirmation_token,
	u.created_at, u.updated_at,
	r.id, r.name, r.description, r.type, r.created_at
	FROM users u LEFT JOIN roles r ON r.id = u.role_id`

// scanUser scans a user row joined with its optional role.
func scanUser(scan func(dest ...any) error) (*User, error) {
	u := &User{}
	var (
		roleID          *int64
		roleName, rDesc *string
		roleType        *string
		roleCreated     *time.Time
	)
	err := scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Provider,
		&u.Confirmed, &u.Blocked, &u.ResetPasswordToken, &u.ConfirmationToken,
		&u.CreatedAt, &u.UpdatedAt,
		&roleID, &roleName, &rDesc, &roleType, &roleCreated,
	)
	if err != nil {
		return nil, err
	}
	if roleID != nil {
		u.Role = &role.Role{ID: *roleID}
		if roleName != nil {
			u.Role.Name = *roleName
		}
		if rDesc != nil {
			u.Role.Description = *rDesc
		}
		if roleType != nil {
			u.Role.Type = *roleType
		}
		if roleCreated != nil {
			u.Role.CreatedAt = *roleCreated
		}
	}
	return u, nil
}

// Create inserts a new user with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var roleID *int64
	if in.RoleID != 0 {
		roleID = &in.RoleID
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, role_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		in.Username, strings.ToLower(in.Email), hash, roleID,
	).Scan(&id)
	if err != nil {
		return nil, database.Wrap(err, "creating user", "user")
	}
	return s.GetByID(ctx, id)
}

// GetByID retrieves a user by primary key.
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting user by id", "user")
	}
	return u, nil
}

// GetByIdentifier retrieves a user by username or email.
func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			selectUser+` WHERE u.username = $1 OR u.email = lower($1)`, identifier,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting user by identifier", "user")
	}
	return u, nil
}

// List returns all users ordered by id.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx, selectUser+` ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update performs a partial update on the user with the given id.
func (s *Store) Update(ctx context.Context, id int64, in UpdateUserInput) (*User, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if in.Username != nil {
		add("username", *in.Username)
	}
	if in.Email != nil {
		add("email", strings.ToLower(*in.Email))
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		add("password_hash", hash)
	}
	if in.Confirmed != nil {
		add("confirmed", *in.Confirmed)
	}
	if in.Blocked != nil {
		add("blocked", *in.Blocked)
	}
	if in.RoleID != nil {
		add("role_id", *in.RoleID)
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), argIdx)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, database.Wrap(err, "updating user", "user")
	}
	if tag.RowsAffected() == 0 {
		return nil, database.Wrap(pgx.ErrNoRows, "updating user", "user")
	}
	return s.GetByID(ctx, id)
}

// SetRole assigns the role with roleID to the user.
func (s *Store) SetRole(ctx context.Context, id, roleID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET role_id = $1, updated_at = now() WHERE id = $2`, roleID, id)
	if err != nil {
		return fmt.Errorf("setting user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.Wrap(pgx.ErrNoRows, "setting user role", "user")
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
