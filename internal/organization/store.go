package organization

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ksenialiashchuk/test-portal/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence contract for organizations and memberships.
// Member listings are ordered by membership id.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Organization, error)
	GetByID(ctx context.Context, id int64) (*Organization, error)
	GetByDocumentID(ctx context.Context, documentID string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	Update(ctx context.Context, documentID string, in UpdateInput) (*Organization, error)
	Delete(ctx context.Context, documentID string) error

	ListMembers(ctx context.Context, orgID int64) ([]*Member, error)
	ListMembershipsByUser(ctx context.Context, userID int64) ([]*Member, error)
	GetMember(ctx context.Context, orgID, userID int64) (*Member, error)
	AddMember(ctx context.Context, orgID, userID int64, role string) (*Member, error)
	UpdateMemberRole(ctx context.Context, orgID, userID int64, role string) (*Member, error)
	RemoveMember(ctx context.Context, orgID, userID int64) error
}

// Store provides database operations for organizations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new organization store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const orgColumns = `id, document_id::text, name, description, created_at, updated_at`

func scanOrganization(scan func(dest ...any) error) (*Organization, error) {
	o := &Organization{}
	if err := scan(&o.ID, &o.DocumentID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts a new organization with a fresh document id.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Organization, error) {
	o, err := scanOrganization(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO organizations (document_id, name, description)
			 VALUES ($1, $2, $3)
			 RETURNING `+orgColumns,
			uuid.NewString(), in.Name, in.Description,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "creating organization", "organization")
	}
	return o, nil
}

// GetByID retrieves an organization by its internal id.
func (s *Store) GetByID(ctx context.Context, id int64) (*Organization, error) {
	o, err := scanOrganization(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting organization by id", "organization")
	}
	return o, nil
}

// GetByDocumentID retrieves an organization by its document id.
func (s *Store) GetByDocumentID(ctx context.Context, documentID string) (*Organization, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, database.Wrap(pgx.ErrNoRows, "getting organization", "organization")
	}
	o, err := scanOrganization(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+orgColumns+` FROM organizations WHERE document_id = $1`, documentID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting organization", "organization")
	}
	return o, nil
}

// List returns all organizations ordered by id.
func (s *Store) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		o, err := scanOrganization(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning organization row: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// Update performs a partial update. Manager is handled by the service.
func (s *Store) Update(ctx context.Context, documentID string, in UpdateInput) (*Organization, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *in.Name)
		argIdx++
	}
	if in.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *in.Description)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetByDocumentID(ctx, documentID)
	}
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, database.Wrap(pgx.ErrNoRows, "updating organization", "organization")
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, documentID)
	query := fmt.Sprintf(
		`UPDATE organizations SET %s WHERE document_id = $%d RETURNING `+orgColumns,
		strings.Join(setClauses, ", "), argIdx,
	)

	o, err := scanOrganization(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "updating organization", "organization")
	}
	return o, nil
}

// Delete removes an organization and, by cascade, its memberships.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	if _, err := uuid.Parse(documentID); err != nil {
		return database.Wrap(pgx.ErrNoRows, "deleting organization", "organization")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("deleting organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.Wrap(pgx.ErrNoRows, "deleting organization", "organization")
	}
	return nil
}

const memberColumns = `id, organization_id, user_id, role, created_at`

func scanMember(scan func(dest ...any) error) (*Member, error) {
	m := &Member{}
	if err := scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) queryMembers(ctx context.Context, where string, arg int64) ([]*Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM organization_members WHERE `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListMembers returns the memberships of an organization.
func (s *Store) ListMembers(ctx context.Context, orgID int64) ([]*Member, error) {
	return s.queryMembers(ctx, "organization_id = $1", orgID)
}

// ListMembershipsByUser returns every membership held by a user.
func (s *Store) ListMembershipsByUser(ctx context.Context, userID int64) ([]*Member, error) {
	return s.queryMembers(ctx, "user_id = $1", userID)
}

// GetMember retrieves the membership of userID in orgID.
func (s *Store) GetMember(ctx context.Context, orgID, userID int64) (*Member, error) {
	m, err := scanMember(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM organization_members
			 WHERE organization_id = $1 AND user_id = $2`, orgID, userID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting member", "membership")
	}
	return m, nil
}

// AddMember inserts a membership. A duplicate returns apperr.ErrConflict.
func (s *Store) AddMember(ctx context.Context, orgID, userID int64, role string) (*Member, error) {
	m, err := scanMember(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO organization_members (organization_id, user_id, role)
			 VALUES ($1, $2, $3)
			 RETURNING `+memberColumns,
			orgID, userID, role,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "adding member", "membership")
	}
	return m, nil
}

// UpdateMemberRole changes the role of an existing membership.
func (s *Store) UpdateMemberRole(ctx context.Context, orgID, userID int64, role string) (*Member, error) {
	m, err := scanMember(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE organization_members SET role = $3
			 WHERE organization_id = $1 AND user_id = $2
			 RETURNING `+memberColumns,
			orgID, userID, role,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "updating member", "membership")
	}
	return m, nil
}

// RemoveMember deletes a membership.
func (s *Store) RemoveMember(ctx context.Context, orgID, userID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.Wrap(pgx.ErrNoRows, "removing member", "membership")
	}
	return nil
}
