package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/google/uuid"
)

// MissionStore implements mission.Repository.
type MissionStore struct {
	db *DB
}

var _ mission.Repository = (*MissionStore)(nil)

func copyMission(m *mission.Mission) *mission.Mission {
	c := *m
	c.Organization = nil
	c.Tasks = nil
	if m.OrganizationID != nil {
		id := *m.OrganizationID
		c.OrganizationID = &id
	}
	return &c
}

func copyAssignment(a *mission.Assignment) *mission.Assignment {
	c := *a
	c.User = nil
	c.Mission = nil
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func copyTask(t *mission.Task) *mission.Task {
	c := *t
	return &c
}

// missionByDocumentID must be called with db.mu held.
func (db *DB) missionByDocumentID(documentID string) *mission.Mission {
	for _, m := range db.missions {
		if m.DocumentID == documentID {
			return m
		}
	}
	return nil
}

// taskByDocumentID must be called with db.mu held.
func (db *DB) taskByDocumentID(documentID string) *mission.Task {
	for _, t := range db.tasks {
		if t.DocumentID == documentID {
			return t
		}
	}
	return nil
}

func (s *MissionStore) Create(ctx context.Context, in mission.CreateInput) (*mission.Mission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if in.OrganizationID != nil {
		if _, ok := s.db.orgs[*in.OrganizationID]; !ok {
			return nil, apperr.NotFound("organization not found")
		}
	}
	now := s.db.timestamp()
	m := &mission.Mission{
		ID:             s.db.nextID("missions"),
		DocumentID:     uuid.NewString(),
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		OrganizationID: in.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.db.missions[m.ID] = copyMission(m)
	return copyMission(m), nil
}

func (s *MissionStore) GetByID(ctx context.Context, id int64) (*mission.Mission, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m, ok := s.db.missions[id]
	if !ok {
		return nil, apperr.NotFound("mission not found")
	}
	return copyMission(m), nil
}

func (s *MissionStore) GetByDocumentID(ctx context.Context, documentID string) (*mission.Mission, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m := s.db.missionByDocumentID(documentID)
	if m == nil {
		return nil, apperr.NotFound("mission not found")
	}
	return copyMission(m), nil
}

func (s *MissionStore) List(ctx context.Context) ([]*mission.Mission, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*mission.Mission
	for _, id := range sortedIDs(s.db.missions) {
		out = append(out, copyMission(s.db.missions[id]))
	}
	return out, nil
}

func (s *MissionStore) Update(ctx context.Context, documentID string, in mission.UpdateInput) (*mission.Mission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m := s.db.missionByDocumentID(documentID)
	if m == nil {
		return nil, apperr.NotFound("mission not found")
	}
	if in.Title == nil && in.Description == nil && in.Status == nil && in.OrganizationID == nil && !in.ClearOrganization {
		return copyMission(m), nil
	}
	if in.ClearOrganization {
		m.OrganizationID = nil
	} else if in.OrganizationID != nil {
		if _, ok := s.db.orgs[*in.OrganizationID]; !ok {
			return nil, apperr.NotFound("organization not found")
		}
		id := *in.OrganizationID
		m.OrganizationID = &id
	}
	if in.Title != nil {
		m.Title = *in.Title
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.Status != nil {
		m.Status = *in.Status
	}
	m.UpdatedAt = s.db.timestamp()
	return copyMission(m), nil
}

// Delete removes the mission with its tasks and assignments.
func (s *MissionStore) Delete(ctx context.Context, documentID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m := s.db.missionByDocumentID(documentID)
	if m == nil {
		return apperr.NotFound("mission not found")
	}
	delete(s.db.missions, m.ID)
	for id, a := range s.db.assignments {
		if a.MissionID == m.ID {
			delete(s.db.assignments, id)
		}
	}
	for id, t := range s.db.tasks {
		if t.MissionID == m.ID {
			delete(s.db.tasks, id)
		}
	}
	return nil
}

// assignment must be called with db.mu held.
func (db *DB) assignment(missionID, userID int64) *mission.Assignment {
	for _, a := range db.assignments {
		if a.MissionID == missionID && a.UserID == userID {
			return a
		}
	}
	return nil
}

func (s *MissionStore) CreateAssignment(ctx context.Context, missionID, userID int64, status string, completedAt *time.Time) (*mission.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.missions[missionID]; !ok {
		return nil, apperr.NotFound("mission not found")
	}
	if _, ok := s.db.users[userID]; !ok {
		return nil, apperr.NotFound("user not found")
	}
	if s.db.assignment(missionID, userID) != nil {
		return nil, apperr.Conflict("assignment already exists")
	}
	a := &mission.Assignment{
		ID:         s.db.nextID("mission_users"),
		MissionID:  missionID,
		UserID:     userID,
		Status:     status,
		AssignedAt: s.db.timestamp(),
	}
	if completedAt != nil {
		t := *completedAt
		a.CompletedAt = &t
	}
	s.db.assignments[a.ID] = a
	return copyAssignment(a), nil
}

func (s *MissionStore) GetAssignment(ctx context.Context, missionID, userID int64) (*mission.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a := s.db.assignment(missionID, userID)
	if a == nil {
		return nil, apperr.NotFound("assignment not found")
	}
	return copyAssignment(a), nil
}

func (s *MissionStore) GetAssignmentByID(ctx context.Context, id int64) (*mission.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a, ok := s.db.assignments[id]
	if !ok {
		return nil, apperr.NotFound("assignment not found")
	}
	return copyAssignment(a), nil
}

func (s *MissionStore) ListAssignments(ctx context.Context, filter mission.AssignmentFilter) ([]*mission.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var users map[int64]bool
	if filter.UserIDs != nil {
		users = make(map[int64]bool, len(filter.UserIDs))
		for _, id := range filter.UserIDs {
			users[id] = true
		}
	}

	var out []*mission.Assignment
	for _, id := range sortedIDs(s.db.assignments) {
		a := s.db.assignments[id]
		if filter.MissionID != 0 && a.MissionID != filter.MissionID {
			continue
		}
		if users != nil && !users[a.UserID] {
			continue
		}
		out = append(out, copyAssignment(a))
	}
	return out, nil
}

func (s *MissionStore) UpdateAssignmentStatus(ctx context.Context, id int64, status string, completedAt *time.Time) (*mission.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.assignments[id]
	if !ok {
		return nil, apperr.NotFound("assignment not found")
	}
	a.Status = status
	a.CompletedAt = nil
	if completedAt != nil {
		t := *completedAt
		a.CompletedAt = &t
	}
	return copyAssignment(a), nil
}

func (s *MissionStore) DeleteAssignment(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.assignments[id]; !ok {
		return apperr.NotFound("assignment not found")
	}
	delete(s.db.assignments, id)
	return nil
}

func (s *MissionStore) CreateTask(ctx context.Context, in mission.CreateTaskInput) (*mission.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.missions[in.MissionID]; !ok {
		return nil, apperr.NotFound("mission not found")
	}
	now := s.db.timestamp()
	t := &mission.Task{
		ID:          s.db.nextID("tasks"),
		DocumentID:  uuid.NewString(),
		MissionID:   in.MissionID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Order:       in.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.db.tasks[t.ID] = t
	return copyTask(t), nil
}

func (s *MissionStore) GetTaskByDocumentID(ctx context.Context, documentID string) (*mission.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t := s.db.taskByDocumentID(documentID)
	if t == nil {
		return nil, apperr.NotFound("task not found")
	}
	return copyTask(t), nil
}

func (s *MissionStore) ListTasks(ctx context.Context, missionID int64) ([]*mission.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*mission.Task
	for _, t := range s.db.tasks {
		if t.MissionID == missionID {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MissionStore) UpdateTask(ctx context.Context, documentID string, in mission.UpdateTaskInput) (*mission.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.db.taskByDocumentID(documentID)
	if t == nil {
		return nil, apperr.NotFound("task not found")
	}
	if in.Title == nil && in.Description == nil && in.Type == nil && in.Order == nil {
		return copyTask(t), nil
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Order != nil {
		t.Order = *in.Order
	}
	t.UpdatedAt = s.db.timestamp()
	return copyTask(t), nil
}

func (s *MissionStore) DeleteTask(ctx context.Context, documentID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.db.taskByDocumentID(documentID)
	if t == nil {
		return apperr.NotFound("task not found")
	}
	delete(s.db.tasks, t.ID)
	return nil
}
