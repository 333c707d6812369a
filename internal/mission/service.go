package mission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
)

// Organizations is the subset of the organization repository the mission
// service reads.
type Organizations interface {
	GetByID(ctx context.Context, id int64) (*organization.Organization, error)
	GetByDocumentID(ctx context.Context, documentID string) (*organization.Organization, error)
	ListMembers(ctx context.Context, orgID int64) ([]*organization.Member, error)
	ListMembershipsByUser(ctx context.Context, userID int64) ([]*organization.Member, error)
}

// UserLookup resolves users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Observer is notified about assignment writes.
type Observer interface {
	AssignmentCreated(source string)
	AssignmentFailed()
}

type noopObserver struct{}

func (noopObserver) AssignmentCreated(string) {}
func (noopObserver) AssignmentFailed()        {}

// Assignment sources reported to the Observer.
const (
	SourceDirect       = "direct"
	SourceOrganization = "organization"
)

// Service implements mission visibility scoping and participation
// mutations.
type Service struct {
	repo     Repository
	orgs     Organizations
	users    UserLookup
	observer Observer
	now      func() time.Time
}

// NewService creates a new Service. observer may be nil.
func NewService(repo Repository, orgs Organizations, users UserLookup, observer Observer) *Service {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Service{
		repo:     repo,
		orgs:     orgs,
		users:    users,
		observer: observer,
		now:      time.Now,
	}
}

// scope returns the user ids whose assignments make a mission visible to
// caller. A nil result means every user (admin); Managers see themselves
// plus every member of an organization they manage.
func (s *Service) scope(ctx context.Context, caller *auth.Caller) ([]int64, error) {
	switch {
	case caller == nil:
		return []int64{}, nil
	case caller.IsAdmin():
		return nil, nil
	case caller.IsManager():
		ids := []int64{caller.ID}
		seen := map[int64]bool{caller.ID: true}

		memberships, err := s.orgs.ListMembershipsByUser(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		for _, ms := range memberships {
			if ms.Role != organization.MemberRoleManager {
				continue
			}
			members, err := s.orgs.ListMembers(ctx, ms.OrganizationID)
			if err != nil {
				return nil, err
			}
			for _, m := range members {
				if !seen[m.UserID] {
					seen[m.UserID] = true
					ids = append(ids, m.UserID)
				}
			}
		}
		return ids, nil
	default:
		return []int64{caller.ID}, nil
	}
}

func inScope(ids []int64, userID int64) bool {
	if ids == nil {
		return true
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}

// List returns the missions visible to caller with their tasks. Missions
// reached through several assignments appear once, in the order their
// first assignment was created.
func (s *Service) List(ctx context.Context, caller *auth.Caller) ([]*Mission, error) {
	ids, err := s.scope(ctx, caller)
	if err != nil {
		return nil, err
	}

	var missions []*Mission
	if ids == nil {
		missions, err = s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
	} else if len(ids) > 0 {
		assignments, err := s.repo.ListAssignments(ctx, AssignmentFilter{UserIDs: ids})
		if err != nil {
			return nil, err
		}

		byID := make(map[int64]*Mission)
		seen := make(map[string]bool)
		for _, a := range assignments {
			m, ok := byID[a.MissionID]
			if !ok {
				m, err = s.repo.GetByID(ctx, a.MissionID)
				if err != nil {
					if apperr.IsNotFound(err) {
						continue
					}
					return nil, err
				}
				byID[a.MissionID] = m
			}
			if seen[m.DocumentID] {
				continue
			}
			seen[m.DocumentID] = true
			missions = append(missions, m)
		}
	}

	for _, m := range missions {
		if err := s.populate(ctx, m); err != nil {
			return nil, err
		}
	}
	if missions == nil {
		missions = []*Mission{}
	}
	return missions, nil
}

// Get returns a single mission. Non-admin callers need a qualifying
// assignment.
func (s *Service) Get(ctx context.Context, caller *auth.Caller, documentID string) (*Mission, error) {
	m, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, caller, m); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) checkVisible(ctx context.Context, caller *auth.Caller, m *Mission) error {
	ids, err := s.scope(ctx, caller)
	if err != nil {
		return err
	}
	if ids == nil {
		return nil
	}
	if len(ids) > 0 {
		assignments, err := s.repo.ListAssignments(ctx, AssignmentFilter{MissionID: m.ID, UserIDs: ids})
		if err != nil {
			return err
		}
		if len(assignments) > 0 {
			return nil
		}
	}
	return apperr.Forbidden("You do not have access to this mission")
}

// Create validates the input and creates a mission.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Mission, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperr.InvalidInput("title is required")
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if !validStatuses[in.Status] {
		return nil, apperr.InvalidInput("status must be one of: draft, active, completed")
	}
	if in.Organization != nil && *in.Organization != "" {
		o, err := s.findOrganization(ctx, *in.Organization)
		if err != nil {
			return nil, err
		}
		in.OrganizationID = &o.ID
	}

	m, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update applies a partial update to a mission.
func (s *Service) Update(ctx context.Context, documentID string, in UpdateInput) (*Mission, error) {
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		if trimmed == "" {
			return nil, apperr.InvalidInput("title cannot be empty")
		}
		in.Title = &trimmed
	}
	if in.Status != nil && !validStatuses[*in.Status] {
		return nil, apperr.InvalidInput("status must be one of: draft, active, completed")
	}
	if in.Organization != nil {
		if *in.Organization == "" {
			in.ClearOrganization = true
		} else {
			o, err := s.findOrganization(ctx, *in.Organization)
			if err != nil {
				return nil, err
			}
			in.OrganizationID = &o.ID
		}
	}

	m, err := s.repo.Update(ctx, documentID, in)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Mission not found")
		}
		return nil, err
	}
	if err := s.populate(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a mission with its tasks and assignments.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	if err := s.repo.Delete(ctx, documentID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Mission not found")
		}
		return err
	}
	return nil
}

// AssignUser creates an assignment of userID to the mission.
func (s *Service) AssignUser(ctx context.Context, documentID string, userID int64) (*Assignment, error) {
	return s.assign(ctx, nil, documentID, userID, AssignmentAssigned)
}

// CreateAssignment assigns userID to the mission with an initial status.
// Any status other than assigned follows the status update rules, so the
// user must be within caller's scope. Nothing is written when a check fails.
func (s *Service) CreateAssignment(ctx context.Context, caller *auth.Caller, documentID string, userID int64, status string) (*Assignment, error) {
	if status == "" {
		status = AssignmentAssigned
	}
	if !validAssignmentStatuses[status] {
		return nil, apperr.InvalidInput("status must be one of: assigned, in_progress, completed")
	}
	return s.assign(ctx, caller, documentID, userID, status)
}

func (s *Service) assign(ctx context.Context, caller *auth.Caller, documentID string, userID int64, status string) (*Assignment, error) {
	if userID <= 0 {
		return nil, apperr.InvalidInput("userId is required")
	}

	m, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}

	if status != AssignmentAssigned {
		ids, err := s.scope(ctx, caller)
		if err != nil {
			return nil, err
		}
		if !inScope(ids, userID) {
			return nil, apperr.Forbidden("You do not have access to this assignment")
		}
	}

	if _, err := s.repo.GetAssignment(ctx, m.ID, userID); err == nil {
		return nil, apperr.Conflict("User is already assigned to this mission")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	var completedAt *time.Time
	if status == AssignmentCompleted {
		now := s.now().UTC()
		completedAt = &now
	}

	a, err := s.repo.CreateAssignment(ctx, m.ID, userID, status, completedAt)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("User is already assigned to this mission")
		}
		return nil, err
	}
	s.observer.AssignmentCreated(SourceDirect)

	a.User = u
	a.Mission = m
	return a, nil
}

// Participants returns every assignment of the mission with users.
func (s *Service) Participants(ctx context.Context, documentID string) ([]*Assignment, error) {
	m, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.ListAssignments(ctx, AssignmentFilter{MissionID: m.ID})
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		a.Mission = m
		if err := s.attachUser(ctx, a); err != nil {
			return nil, err
		}
	}
	if assignments == nil {
		assignments = []*Assignment{}
	}
	return assignments, nil
}

// RemoveParticipant deletes the assignment of userID to the mission.
func (s *Service) RemoveParticipant(ctx context.Context, documentID string, userID int64) error {
	m, err := s.find(ctx, documentID)
	if err != nil {
		return err
	}

	a, err := s.repo.GetAssignment(ctx, m.ID, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Assignment not found")
		}
		return err
	}

	if err := s.repo.DeleteAssignment(ctx, a.ID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Assignment not found")
		}
		return err
	}
	return nil
}

// AssignOrganization assigns every member of an organization to the
// mission. Members already assigned are skipped; per-member failures are
// collected and do not stop the run.
func (s *Service) AssignOrganization(ctx context.Context, documentID, organizationID string) (*BulkResult, error) {
	if organizationID == "" {
		return nil, apperr.InvalidInput("organizationId is required")
	}

	m, err := s.find(ctx, documentID)
	if err != nil {
		return nil, err
	}
	o, err := s.findOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	members, err := s.orgs.ListMembers(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, apperr.InvalidInput("Organization has no members")
	}

	result := &BulkResult{TotalMembers: len(members)}
	for _, member := range members {
		if err := s.assignMember(ctx, m.ID, member.UserID); err != nil {
			if errors.Is(err, errAlreadyAssigned) {
				continue
			}
			s.observer.AssignmentFailed()
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to assign user %d: %s", member.UserID, err.Error()))
			continue
		}
		result.AddedCount++
	}

	result.Message = fmt.Sprintf("%d user(s) assigned from organization \"%s\"", result.AddedCount, o.Name)
	return result, nil
}

var errAlreadyAssigned = errors.New("already assigned")

func (s *Service) assignMember(ctx context.Context, missionID, userID int64) error {
	if _, err := s.repo.GetAssignment(ctx, missionID, userID); err == nil {
		return errAlreadyAssigned
	} else if !apperr.IsNotFound(err) {
		return err
	}

	if _, err := s.repo.CreateAssignment(ctx, missionID, userID, AssignmentAssigned, nil); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return errAlreadyAssigned
		}
		return err
	}
	s.observer.AssignmentCreated(SourceOrganization)
	return nil
}

// Assignments lists the assignments visible to caller. Admins see all rows,
// Managers see rows of users in their scope, everyone else sees their own.
func (s *Service) Assignments(ctx context.Context, caller *auth.Caller, q AssignmentQuery) ([]*Assignment, error) {
	ids, err := s.scope(ctx, caller)
	if err != nil {
		return nil, err
	}

	filter := AssignmentFilter{UserIDs: ids}
	if q.UserID > 0 {
		if inScope(ids, q.UserID) {
			filter.UserIDs = []int64{q.UserID}
		} else {
			filter.UserIDs = []int64{}
		}
	}
	if q.Mission != "" {
		m, err := s.find(ctx, q.Mission)
		if err != nil {
			return nil, err
		}
		filter.MissionID = m.ID
	}

	var assignments []*Assignment
	if filter.UserIDs == nil || len(filter.UserIDs) > 0 {
		assignments, err = s.repo.ListAssignments(ctx, filter)
		if err != nil {
			return nil, err
		}
	}

	for _, a := range assignments {
		if err := s.attach(ctx, a); err != nil {
			return nil, err
		}
	}
	if assignments == nil {
		assignments = []*Assignment{}
	}
	return assignments, nil
}

// Assignment returns a single assignment visible to caller.
func (s *Service) Assignment(ctx context.Context, caller *auth.Caller, id int64) (*Assignment, error) {
	a, err := s.visibleAssignment(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.attach(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAssignmentStatus moves an assignment to status. Completing it
// records the completion time; any other status clears it.
func (s *Service) UpdateAssignmentStatus(ctx context.Context, caller *auth.Caller, id int64, status string) (*Assignment, error) {
	if !validAssignmentStatuses[status] {
		return nil, apperr.InvalidInput("status must be one of: assigned, in_progress, completed")
	}

	if _, err := s.visibleAssignment(ctx, caller, id); err != nil {
		return nil, err
	}

	var completedAt *time.Time
	if status == AssignmentCompleted {
		now := s.now().UTC()
		completedAt = &now
	}

	a, err := s.repo.UpdateAssignmentStatus(ctx, id, status, completedAt)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Assignment not found")
		}
		return nil, err
	}
	if err := s.attach(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAssignment removes an assignment visible to caller.
func (s *Service) DeleteAssignment(ctx context.Context, caller *auth.Caller, id int64) error {
	if _, err := s.visibleAssignment(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.DeleteAssignment(ctx, id); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Assignment not found")
		}
		return err
	}
	return nil
}

func (s *Service) visibleAssignment(ctx context.Context, caller *auth.Caller, id int64) (*Assignment, error) {
	a, err := s.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Assignment not found")
		}
		return nil, err
	}

	ids, err := s.scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !inScope(ids, a.UserID) {
		return nil, apperr.Forbidden("You do not have access to this assignment")
	}
	return a, nil
}

// Tasks returns the tasks of a visible mission ordered by order. With an
// empty missionID it returns the tasks of every mission visible to caller.
func (s *Service) Tasks(ctx context.Context, caller *auth.Caller, missionID string) ([]*Task, error) {
	var missions []*Mission
	if missionID != "" {
		m, err := s.Get(ctx, caller, missionID)
		if err != nil {
			return nil, err
		}
		missions = []*Mission{m}
	} else {
		all, err := s.List(ctx, caller)
		if err != nil {
			return nil, err
		}
		missions = all
	}

	tasks := []*Task{}
	for _, m := range missions {
		tasks = append(tasks, m.Tasks...)
	}
	return tasks, nil
}

// Task returns a single task whose mission is visible to caller.
func (s *Service) Task(ctx context.Context, caller *auth.Caller, documentID string) (*Task, error) {
	t, err := s.findTask(ctx, documentID)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.GetByID(ctx, t.MissionID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Mission not found")
		}
		return nil, err
	}
	if err := s.checkVisible(ctx, caller, m); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTask validates the input and adds a task to a mission.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperr.InvalidInput("title is required")
	}
	if in.Type == "" {
		in.Type = TaskOther
	}
	if !validTaskTypes[in.Type] {
		return nil, apperr.InvalidInput("type must be one of: quiz, survey, action, other")
	}
	if in.Mission == "" {
		return nil, apperr.InvalidInput("mission is required")
	}

	m, err := s.find(ctx, in.Mission)
	if err != nil {
		return nil, err
	}
	in.MissionID = m.ID

	return s.repo.CreateTask(ctx, in)
}

// UpdateTask applies a partial update to a task.
func (s *Service) UpdateTask(ctx context.Context, documentID string, in UpdateTaskInput) (*Task, error) {
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		if trimmed == "" {
			return nil, apperr.InvalidInput("title cannot be empty")
		}
		in.Title = &trimmed
	}
	if in.Type != nil && !validTaskTypes[*in.Type] {
		return nil, apperr.InvalidInput("type must be one of: quiz, survey, action, other")
	}

	t, err := s.repo.UpdateTask(ctx, documentID, in)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Task not found")
		}
		return nil, err
	}
	return t, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, documentID string) error {
	if err := s.repo.DeleteTask(ctx, documentID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Task not found")
		}
		return err
	}
	return nil
}

func (s *Service) find(ctx context.Context, documentID string) (*Mission, error) {
	m, err := s.repo.GetByDocumentID(ctx, documentID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Mission not found")
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) findTask(ctx context.Context, documentID string) (*Task, error) {
	t, err := s.repo.GetTaskByDocumentID(ctx, documentID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Task not found")
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) findOrganization(ctx context.Context, documentID string) (*organization.Organization, error) {
	o, err := s.orgs.GetByDocumentID(ctx, documentID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Organization not found")
		}
		return nil, err
	}
	return o, nil
}

// populate attaches ordered tasks and the owning organization.
func (s *Service) populate(ctx context.Context, m *Mission) error {
	tasks, err := s.repo.ListTasks(ctx, m.ID)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	m.Tasks = tasks

	m.Organization = nil
	if m.OrganizationID != nil {
		o, err := s.orgs.GetByID(ctx, *m.OrganizationID)
		if err != nil && !apperr.IsNotFound(err) {
			return err
		}
		if o != nil {
			m.Organization = o.Ref()
		}
	}
	return nil
}

func (s *Service) attachUser(ctx context.Context, a *Assignment) error {
	u, err := s.users.GetByID(ctx, a.UserID)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	a.User = u
	return nil
}

// attach populates an assignment's user and mission.
func (s *Service) attach(ctx context.Context, a *Assignment) error {
	if err := s.attachUser(ctx, a); err != nil {
		return err
	}
	m, err := s.repo.GetByID(ctx, a.MissionID)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	a.Mission = m
	return nil
}
