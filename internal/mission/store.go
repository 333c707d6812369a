package mission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence contract for missions, assignments and
// tasks. Listings are ordered by id; tasks by order, then id.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Mission, error)
	GetByID(ctx context.Context, id int64) (*Mission, error)
	GetByDocumentID(ctx context.Context, documentID string) (*Mission, error)
	List(ctx context.Context) ([]*Mission, error)
	Update(ctx context.Context, documentID string, in UpdateInput) (*Mission, error)
	Delete(ctx context.Context, documentID string) error

	CreateAssignment(ctx context.Context, missionID, userID int64, status string, completedAt *time.Time) (*Assignment, error)
	GetAssignment(ctx context.Context, missionID, userID int64) (*Assignment, error)
	GetAssignmentByID(ctx context.Context, id int64) (*Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, id int64, status string, completedAt *time.Time) (*Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error)
	GetTaskByDocumentID(ctx context.Context, documentID string) (*Task, error)
	ListTasks(ctx context.Context, missionID int64) ([]*Task, error)
	UpdateTask(ctx context.Context, documentID string, in UpdateTaskInput) (*Task, error)
	DeleteTask(ctx context.Context, documentID string) error
}

// Store provides database operations for missions, assignments and tasks.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new mission store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// validDocumentID guards uuid columns against malformed route parameters.
func validDocumentID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

const missionColumns = `id, document_id::text, title, description, status, organization_id, created_at, updated_at`

func scanMission(scan func(dest ...any) error) (*Mission, error) {
	m := &Mission{}
	err := scan(&m.ID, &m.DocumentID, &m.Title, &m.Description, &m.Status,
		&m.OrganizationID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a new mission with a fresh document id.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Mission, error) {
	m, err := scanMission(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO missions (document_id, title, description, status, organization_id)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+missionColumns,
			uuid.NewString(), in.Title, in.Description, in.Status, in.OrganizationID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "creating mission", "mission")
	}
	return m, nil
}

// GetByID retrieves a mission by its internal id.
func (s *Store) GetByID(ctx context.Context, id int64) (*Mission, error) {
	m, err := scanMission(func(dest ...any) error {
		return s.pool.QueryRow(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = $1`, id).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting mission by id", "mission")
	}
	return m, nil
}

// GetByDocumentID retrieves a mission by its document id.
func (s *Store) GetByDocumentID(ctx context.Context, documentID string) (*Mission, error) {
	if !validDocumentID(documentID) {
		return nil, database.Wrap(pgx.ErrNoRows, "getting mission", "mission")
	}
	m, err := scanMission(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+missionColumns+` FROM missions WHERE document_id = $1`, documentID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting mission", "mission")
	}
	return m, nil
}

// List returns all missions ordered by id.
func (s *Store) List(ctx context.Context) ([]*Mission, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+missionColumns+` FROM missions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing missions: %w", err)
	}
	defer rows.Close()

	var missions []*Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning mission row: %w", err)
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

// Update performs a partial update on a mission.
func (s *Store) Update(ctx context.Context, documentID string, in UpdateInput) (*Mission, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	switch {
	case in.ClearOrganization:
		add("organization_id", nil)
	case in.OrganizationID != nil:
		add("organization_id", *in.OrganizationID)
	}

	if len(setClauses) == 0 {
		return s.GetByDocumentID(ctx, documentID)
	}
	if !validDocumentID(documentID) {
		return nil, database.Wrap(pgx.ErrNoRows, "updating mission", "mission")
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, documentID)
	query := fmt.Sprintf(
		`UPDATE missions SET %s WHERE document_id = $%d RETURNING `+missionColumns,
		strings.Join(setClauses, ", "), argIdx,
	)

	m, err := scanMission(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "updating mission", "mission")
	}
	return m, nil
}

// Delete removes a mission and, by cascade, its tasks and assignments.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	if !validDocumentID(documentID) {
		return database.Wrap(pgx.ErrNoRows, "deleting mission", "mission")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM missions WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("deleting mission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.Wrap(pgx.ErrNoRows, "deleting mission", "mission")
	}
	return nil
}

const assignmentColumns = `id, mission_id, user_id, status, assigned_at, completed_at`

func scanAssignment(scan func(dest ...any) error) (*Assignment, error) {
	a := &Assignment{}
	if err := scan(&a.ID, &a.MissionID, &a.UserID, &a.Status, &a.AssignedAt, &a.CompletedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAssignment inserts an assignment. A duplicate (mission, user) pair
// returns apperr.ErrConflict.
func (s *Store) CreateAssignment(ctx context.Context, missionID, userID int64, status string, completedAt *time.Time) (*Assignment, error) {
	a, err := scanAssignment(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO mission_users (mission_id, user_id, status, completed_at)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+assignmentColumns,
			missionID, userID, status, completedAt,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "creating assignment", "assignment")
	}
	return a, nil
}

// GetAssignment retrieves the assignment of userID to missionID.
func (s *Store) GetAssignment(ctx context.Context, missionID, userID int64) (*Assignment, error) {
	a, err := scanAssignment(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+assignmentColumns+` FROM mission_users
			 WHERE mission_id = $1 AND user_id = $2`, missionID, userID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting assignment", "assignment")
	}
	return a, nil
}

// GetAssignmentByID retrieves an assignment by id.
func (s *Store) GetAssignmentByID(ctx context.Context, id int64) (*Assignment, error) {
	a, err := scanAssignment(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+assignmentColumns+` FROM mission_users WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting assignment by id", "assignment")
	}
	return a, nil
}

// ListAssignments returns assignments matching filter ordered by id.
func (s *Store) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM mission_users
		 WHERE ($1::bigint = 0 OR mission_id = $1)
		   AND ($2::bigint[] IS NULL OR user_id = ANY($2))
		 ORDER BY id`,
		filter.MissionID, filter.UserIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// UpdateAssignmentStatus sets the status and completion time of an
// assignment.
func (s *Store) UpdateAssignmentStatus(ctx context.Context, id int64, status string, completedAt *time.Time) (*Assignment, error) {
	a, err := scanAssignment(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE mission_users SET status = $2, completed_at = $3
			 WHERE id = $1
			 RETURNING `+assignmentColumns,
			id, status, completedAt,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "updating assignment", "assignment")
	}
	return a, nil
}

// DeleteAssignment removes an assignment by id.
func (s *Store) DeleteAssignment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mission_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.Wrap(pgx.ErrNoRows, "deleting assignment", "assignment")
	}
	return nil
}

const taskColumns = `id, document_id::text, mission_id, title, description, type, sort_order, created_at, updated_at`

func scanTask(scan func(dest ...any) error) (*Task, error) {
	t := &Task{}
	err := scan(&t.ID, &t.DocumentID, &t.MissionID, &t.Title, &t.Description,
		&t.Type, &t.Order, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTask inserts a task into a mission.
func (s *Store) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO tasks (document_id, mission_id, title, description, type, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING `+taskColumns,
			uuid.NewString(), in.MissionID, in.Title, in.Description, in.Type, in.Order,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "creating task", "task")
	}
	return t, nil
}

// GetTaskByDocumentID retrieves a task by its document id.
func (s *Store) GetTaskByDocumentID(ctx context.Context, documentID string) (*Task, error) {
	if !validDocumentID(documentID) {
		return nil, database.Wrap(pgx.ErrNoRows, "getting task", "task")
	}
	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE document_id = $1`, documentID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "getting task", "task")
	}
	return t, nil
}

// ListTasks returns a mission's tasks in order.
func (s *Store) ListTasks(ctx context.Context, missionID int64) ([]*Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE mission_id = $1 ORDER BY sort_order, id`, missionID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask performs a partial update on a task.
func (s *Store) UpdateTask(ctx context.Context, documentID string, in UpdateTaskInput) (*Task, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Type != nil {
		add("type", *in.Type)
	}
	if in.Order != nil {
		add("sort_order", *in.Order)
	}

	if len(setClauses) == 0 {
		return s.GetTaskByDocumentID(ctx, documentID)
	}
	if !validDocumentID(documentID) {
		return nil, database.Wrap(pgx.ErrNoRows, "updating task", "task")
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, documentID)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE document_id = $%d RETURNING `+taskColumns,
		strings.Join(setClauses, ", "), argIdx,
	)

	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return nil, database.Wrap(err, "updating task", "task")
	}
	return t, nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, documentID string) error {
	if !validDocumentID(documentID) {
		return database.Wrap(pgx.ErrNoRows, "deleting task", "task")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.Wrap(pgx.ErrNoRows, "deleting task", "task")
	}
	return nil
}
