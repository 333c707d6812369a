package mission_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/bootstrap"
	"github.com/Ksenialiashchuk/test-portal/internal/memstore"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fixture ---

type countingObserver struct {
	created map[string]int
	failed  int
}

func (o *countingObserver) AssignmentCreated(source string) { o.created[source]++ }
func (o *countingObserver) AssignmentFailed()               { o.failed++ }

type fixture struct {
	ctx      context.Context
	users    *memstore.UserStore
	orgs     *memstore.OrganizationStore
	missions *memstore.MissionStore
	observer *countingObserver
	svc      *mission.Service
	roles    map[string]int64
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memstore.New()

	_, err := bootstrap.Run(ctx, db.Roles())
	require.NoError(t, err)

	all, err := db.Roles().List(ctx)
	require.NoError(t, err)
	roles := make(map[string]int64, len(all))
	for _, r := range all {
		roles[r.Name] = r.ID
	}

	f := &fixture{
		ctx:      ctx,
		users:    db.Users(),
		orgs:     db.Organizations(),
		missions: db.Missions(),
		observer: &countingObserver{created: map[string]int{}},
		roles:    roles,
	}
	f.svc = mission.NewService(f.missions, f.orgs, f.users, f.observer)
	return f
}

func (f *fixture) caller(t *testing.T, roleName string) *auth.Caller {
	t.Helper()
	f.seq++
	u, err := f.users.Create(f.ctx, user.CreateUserInput{
		Username: fmt.Sprintf("user%d", f.seq),
		Email:    fmt.Sprintf("user%d@example.com", f.seq),
		Password: "secret123",
		RoleID:   f.roles[roleName],
	})
	require.NoError(t, err)
	return &auth.Caller{ID: u.ID, Username: u.Username, Email: u.Email, Role: roleName}
}

func (f *fixture) org(t *testing.T, name string) *organization.Organization {
	t.Helper()
	o, err := f.orgs.Create(f.ctx, organization.CreateInput{Name: name})
	require.NoError(t, err)
	return o
}

func (f *fixture) join(t *testing.T, o *organization.Organization, c *auth.Caller, memberRole string) {
	t.Helper()
	_, err := f.orgs.AddMember(f.ctx, o.ID, c.ID, memberRole)
	require.NoError(t, err)
}

func (f *fixture) mission(t *testing.T, title string) *mission.Mission {
	t.Helper()
	m, err := f.svc.Create(f.ctx, mission.CreateInput{Title: title})
	require.NoError(t, err)
	return m
}

func (f *fixture) assign(t *testing.T, m *mission.Mission, c *auth.Caller) *mission.Assignment {
	t.Helper()
	a, err := f.svc.AssignUser(f.ctx, m.DocumentID, c.ID)
	require.NoError(t, err)
	return a
}

func titles(missions []*mission.Mission) []string {
	out := make([]string, 0, len(missions))
	for _, m := range missions {
		out = append(out, m.Title)
	}
	return out
}

// --- visibility ---

func TestList_ScopesByRole(t *testing.T) {
	f := newFixture(t)

	admin := f.caller(t, role.Admin)
	manager := f.caller(t, role.Manager)
	employee := f.caller(t, role.Authenticated)
	outsider := f.caller(t, role.Authenticated)

	acme := f.org(t, "Acme")
	f.join(t, acme, manager, organization.MemberRoleManager)
	f.join(t, acme, employee, organization.MemberRoleEmployee)

	own := f.mission(t, "manager-own")
	team := f.mission(t, "employee-task")
	other := f.mission(t, "outsider-task")
	f.mission(t, "unassigned")

	f.assign(t, own, manager)
	f.assign(t, team, employee)
	f.assign(t, other, outsider)

	tests := []struct {
		name   string
		caller *auth.Caller
		want   []string
	}{
		{"admin sees everything", admin, []string{"manager-own", "employee-task", "outsider-task", "unassigned"}},
		{"manager sees own and managed members", manager, []string{"manager-own", "employee-task"}},
		{"employee sees only own", employee, []string{"employee-task"}},
		{"outsider sees only own", outsider, []string{"outsider-task"}},
		{"anonymous sees nothing", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.List(f.ctx, tt.caller)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestList_ManagerOfEmployeeMembershipDoesNotWiden(t *testing.T) {
	f := newFixture(t)

	manager := f.caller(t, role.Manager)
	colleague := f.caller(t, role.Authenticated)

	o := f.org(t, "Plain")
	f.join(t, o, manager, organization.MemberRoleEmployee)
	f.join(t, o, colleague, organization.MemberRoleEmployee)

	f.assign(t, f.mission(t, "colleague-only"), colleague)

	got, err := f.svc.List(f.ctx, manager)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestList_DeduplicatesMissionsReachedTwice(t *testing.T) {
	f := newFixture(t)

	manager := f.caller(t, role.Manager)
	a := f.caller(t, role.Authenticated)
	b := f.caller(t, role.Authenticated)

	first := f.org(t, "First")
	second := f.org(t, "Second")
	f.join(t, first, manager, organization.MemberRoleManager)
	f.join(t, second, manager, organization.MemberRoleManager)
	f.join(t, first, a, organization.MemberRoleEmployee)
	f.join(t, second, a, organization.MemberRoleEmployee)
	f.join(t, second, b, organization.MemberRoleEmployee)

	shared := f.mission(t, "shared")
	solo := f.mission(t, "solo")
	f.assign(t, shared, a)
	f.assign(t, shared, b)
	f.assign(t, solo, b)
	f.assign(t, shared, manager)

	got, err := f.svc.List(f.ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared", "solo"}, titles(got))
}

func TestList_PopulatesTasksInOrder(t *testing.T) {
	f := newFixture(t)
	admin := f.caller(t, role.Admin)
	m := f.mission(t, "ordered")

	for _, in := range []mission.CreateTaskInput{
		{Title: "third", Order: 3},
		{Title: "first", Order: 1},
		{Title: "second", Order: 2},
	} {
		in.Mission = m.DocumentID
		_, err := f.svc.CreateTask(f.ctx, in)
		require.NoError(t, err)
	}

	got, err := f.svc.Get(f.ctx, admin, m.DocumentID)
	require.NoError(t, err)
	require.Len(t, got.Tasks, 3)
	assert.Equal(t, "first", got.Tasks[0].Title)
	assert.Equal(t, "second", got.Tasks[1].Title)
	assert.Equal(t, "third", got.Tasks[2].Title)
	assert.Equal(t, mission.TaskOther, got.Tasks[0].Type)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	employee := f.caller(t, role.Authenticated)
	stranger := f.caller(t, role.Authenticated)
	m := f.mission(t, "visible")
	f.assign(t, m, employee)

	got, err := f.svc.Get(f.ctx, employee, m.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, m.DocumentID, got.DocumentID)

	_, err = f.svc.Get(f.ctx, stranger, m.DocumentID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "You do not have access to this mission", apperr.Message(err, ""))

	_, err = f.svc.Get(f.ctx, nil, m.DocumentID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Get(f.ctx, employee, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// --- mutations ---

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	missing := "does-not-exist"

	tests := []struct {
		name    string
		input   mission.CreateInput
		wantErr error
	}{
		{"blank title", mission.CreateInput{Title: "  "}, apperr.ErrInvalidInput},
		{"bad status", mission.CreateInput{Title: "x", Status: "paused"}, apperr.ErrInvalidInput},
		{"unknown organization", mission.CreateInput{Title: "x", Organization: &missing}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	o := f.org(t, "Owner")
	m, err := f.svc.Create(f.ctx, mission.CreateInput{Title: "owned", Organization: &o.DocumentID})
	require.NoError(t, err)
	assert.Equal(t, mission.StatusDraft, m.Status)
	require.NotNil(t, m.Organization)
	assert.Equal(t, o.DocumentID, m.Organization.DocumentID)
}

func TestUpdate_Organization(t *testing.T) {
	f := newFixture(t)
	o := f.org(t, "Owner")
	m := f.mission(t, "movable")

	attached, err := f.svc.Update(f.ctx, m.DocumentID, mission.UpdateInput{Organization: &o.DocumentID})
	require.NoError(t, err)
	require.NotNil(t, attached.Organization)
	assert.Equal(t, o.DocumentID, attached.Organization.DocumentID)

	title := "renamed"
	kept, err := f.svc.Update(f.ctx, m.DocumentID, mission.UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.NotNil(t, kept.Organization, "omitted organization is left alone")

	empty := ""
	cleared, err := f.svc.Update(f.ctx, m.DocumentID, mission.UpdateInput{Organization: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.Organization)
	assert.Equal(t, "renamed", cleared.Title)
}

func TestAssignUser(t *testing.T) {
	f := newFixture(t)
	u := f.caller(t, role.Authenticated)
	m := f.mission(t, "assign")

	a := f.assign(t, m, u)
	assert.Equal(t, mission.AssignmentAssigned, a.Status)
	require.NotNil(t, a.User)
	assert.Equal(t, u.ID, a.User.ID)
	require.NotNil(t, a.Mission)
	assert.Equal(t, m.DocumentID, a.Mission.DocumentID)
	assert.Equal(t, 1, f.observer.created[mission.SourceDirect])

	_, err := f.svc.AssignUser(f.ctx, m.DocumentID, u.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "User is already assigned to this mission", apperr.Message(err, ""))

	participants, err := f.svc.Participants(f.ctx, m.DocumentID)
	require.NoError(t, err)
	assert.Len(t, participants, 1)
}

func TestAssignUser_Errors(t *testing.T) {
	f := newFixture(t)
	u := f.caller(t, role.Authenticated)
	m := f.mission(t, "assign")

	tests := []struct {
		name    string
		mission string
		userID  int64
		wantErr error
		wantMsg string
	}{
		{"missing user id", m.DocumentID, 0, apperr.ErrInvalidInput, "userId is required"},
		{"unknown mission", "nope", u.ID, apperr.ErrNotFound, "Mission not found"},
		{"unknown user", m.DocumentID, 9999, apperr.ErrNotFound, "User not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AssignUser(f.ctx, tt.mission, tt.userID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, apperr.Message(err, ""))
		})
	}
}

func TestRemoveParticipant(t *testing.T) {
	f := newFixture(t)
	u := f.caller(t, role.Authenticated)
	m := f.mission(t, "remove")

	err := f.svc.RemoveParticipant(f.ctx, m.DocumentID, u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Assignment not found", apperr.Message(err, ""))

	f.assign(t, m, u)
	require.NoError(t, f.svc.RemoveParticipant(f.ctx, m.DocumentID, u.ID))

	participants, err := f.svc.Participants(f.ctx, m.DocumentID)
	require.NoError(t, err)
	assert.Empty(t, participants)
}

func TestAssignOrganization(t *testing.T) {
	f := newFixture(t)
	o := f.org(t, "Acme")
	members := []*auth.Caller{
		f.caller(t, role.Authenticated),
		f.caller(t, role.Authenticated),
		f.caller(t, role.Authenticated),
		f.caller(t, role.Manager),
	}
	for _, c := range members {
		f.join(t, o, c, organization.MemberRoleEmployee)
	}
	m := f.mission(t, "bulk")
	f.assign(t, m, members[1])

	res, err := f.svc.AssignOrganization(f.ctx, m.DocumentID, o.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.AddedCount)
	assert.Equal(t, 4, res.TotalMembers)
	assert.Empty(t, res.Errors)
	assert.Equal(t, `3 user(s) assigned from organization "Acme"`, res.Message)
	assert.Equal(t, 3, f.observer.created[mission.SourceOrganization])

	again, err := f.svc.AssignOrganization(f.ctx, m.DocumentID, o.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.AddedCount)

	participants, err := f.svc.Participants(f.ctx, m.DocumentID)
	require.NoError(t, err)
	assert.Len(t, participants, 4)
}

func TestAssignOrganization_Errors(t *testing.T) {
	f := newFixture(t)
	empty := f.org(t, "Empty")
	m := f.mission(t, "bulk")

	tests := []struct {
		name    string
		mission string
		org     string
		wantErr error
		wantMsg string
	}{
		{"missing organization id", m.DocumentID, "", apperr.ErrInvalidInput, "organizationId is required"},
		{"unknown mission", "nope", empty.DocumentID, apperr.ErrNotFound, "Mission not found"},
		{"unknown organization", m.DocumentID, "nope", apperr.ErrNotFound, "Organization not found"},
		{"no members", m.DocumentID, empty.DocumentID, apperr.ErrInvalidInput, "Organization has no members"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AssignOrganization(f.ctx, tt.mission, tt.org)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, apperr.Message(err, ""))
		})
	}
}

// failingMissions rejects assignments of one user.
type failingMissions struct {
	*memstore.MissionStore
	failFor int64
}

func (f *failingMissions) CreateAssignment(ctx context.Context, missionID, userID int64, status string, completedAt *time.Time) (*mission.Assignment, error) {
	if userID == f.failFor {
		return nil, errors.New("storage unavailable")
	}
	return f.MissionStore.CreateAssignment(ctx, missionID, userID, status, completedAt)
}

func TestAssignOrganization_CollectsMemberFailures(t *testing.T) {
	f := newFixture(t)
	o := f.org(t, "Acme")
	ok := f.caller(t, role.Authenticated)
	bad := f.caller(t, role.Authenticated)
	f.join(t, o, ok, organization.MemberRoleEmployee)
	f.join(t, o, bad, organization.MemberRoleEmployee)
	m := f.mission(t, "bulk")

	svc := mission.NewService(&failingMissions{MissionStore: f.missions, failFor: bad.ID}, f.orgs, f.users, f.observer)
	res, err := svc.AssignOrganization(f.ctx, m.DocumentID, o.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AddedCount)
	assert.Equal(t, 2, res.TotalMembers)
	assert.Equal(t, []string{fmt.Sprintf("Failed to assign user %d: storage unavailable", bad.ID)}, res.Errors)
	assert.Equal(t, 1, f.observer.failed)
}

// --- assignments ---

func TestAssignments_Scoped(t *testing.T) {
	f := newFixture(t)
	admin := f.caller(t, role.Admin)
	employee := f.caller(t, role.Authenticated)
	other := f.caller(t, role.Authenticated)
	m := f.mission(t, "rows")
	f.assign(t, m, employee)
	f.assign(t, m, other)

	all, err := f.svc.Assignments(f.ctx, admin, mission.AssignmentQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.svc.Assignments(f.ctx, employee, mission.AssignmentQuery{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, employee.ID, own[0].User.ID)

	peek, err := f.svc.Assignments(f.ctx, employee, mission.AssignmentQuery{UserID: other.ID})
	require.NoError(t, err)
	assert.Empty(t, peek)

	byMission, err := f.svc.Assignments(f.ctx, admin, mission.AssignmentQuery{Mission: m.DocumentID, UserID: other.ID})
	require.NoError(t, err)
	require.Len(t, byMission, 1)
	assert.Equal(t, other.ID, byMission[0].User.ID)
}

func TestUpdateAssignmentStatus(t *testing.T) {
	f := newFixture(t)
	employee := f.caller(t, role.Authenticated)
	stranger := f.caller(t, role.Authenticated)
	m := f.mission(t, "progress")
	a := f.assign(t, m, employee)

	done, err := f.svc.UpdateAssignmentStatus(f.ctx, employee, a.ID, mission.AssignmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, mission.AssignmentCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	reopened, err := f.svc.UpdateAssignmentStatus(f.ctx, employee, a.ID, mission.AssignmentInProgress)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	_, err = f.svc.UpdateAssignmentStatus(f.ctx, employee, a.ID, "paused")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.UpdateAssignmentStatus(f.ctx, stranger, a.ID, mission.AssignmentCompleted)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = f.svc.DeleteAssignment(f.ctx, stranger, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	require.NoError(t, f.svc.DeleteAssignment(f.ctx, employee, a.ID))

	_, err = f.svc.Assignment(f.ctx, employee, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateAssignment(t *testing.T) {
	f := newFixture(t)
	admin := f.caller(t, role.Admin)
	manager := f.caller(t, role.Manager)
	employee := f.caller(t, role.Authenticated)
	outsider := f.caller(t, role.Authenticated)

	acme := f.org(t, "Acme")
	f.join(t, acme, manager, organization.MemberRoleManager)
	f.join(t, acme, employee, organization.MemberRoleEmployee)
	m := f.mission(t, "onboarding")

	rows := func() int {
		all, err := f.missions.ListAssignments(f.ctx, mission.AssignmentFilter{MissionID: m.ID})
		require.NoError(t, err)
		return len(all)
	}

	_, err := f.svc.CreateAssignment(f.ctx, admin, m.DocumentID, employee.ID, "bogus")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Equal(t, 0, rows())

	_, err = f.svc.CreateAssignment(f.ctx, manager, m.DocumentID, outsider.ID, mission.AssignmentInProgress)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, 0, rows())

	done, err := f.svc.CreateAssignment(f.ctx, manager, m.DocumentID, employee.ID, mission.AssignmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, mission.AssignmentCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	plain, err := f.svc.CreateAssignment(f.ctx, manager, m.DocumentID, outsider.ID, "")
	require.NoError(t, err)
	assert.Equal(t, mission.AssignmentAssigned, plain.Status)
	assert.Nil(t, plain.CompletedAt)
	assert.Equal(t, 2, rows())
	assert.Equal(t, 2, f.observer.created[mission.SourceDirect])
}

// --- tasks ---

func TestTasks(t *testing.T) {
	f := newFixture(t)
	employee := f.caller(t, role.Authenticated)
	visible := f.mission(t, "visible")
	hidden := f.mission(t, "hidden")
	f.assign(t, visible, employee)

	seen, err := f.svc.CreateTask(f.ctx, mission.CreateTaskInput{Title: "seen", Mission: visible.DocumentID, Type: mission.TaskQuiz})
	require.NoError(t, err)
	unseen, err := f.svc.CreateTask(f.ctx, mission.CreateTaskInput{Title: "unseen", Mission: hidden.DocumentID})
	require.NoError(t, err)

	got, err := f.svc.Tasks(f.ctx, employee, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, seen.DocumentID, got[0].DocumentID)

	_, err = f.svc.Tasks(f.ctx, employee, hidden.DocumentID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Task(f.ctx, employee, unseen.DocumentID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.CreateTask(f.ctx, mission.CreateTaskInput{Title: "x", Mission: visible.DocumentID, Type: "essay"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	renamed := "renamed"
	updated, err := f.svc.UpdateTask(f.ctx, seen.DocumentID, mission.UpdateTaskInput{Title: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	require.NoError(t, f.svc.DeleteTask(f.ctx, seen.DocumentID))
	err = f.svc.DeleteTask(f.ctx, seen.DocumentID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Task not found", apperr.Message(err, ""))
}

func TestDelete_CascadesAssignmentsAndTasks(t *testing.T) {
	f := newFixture(t)
	employee := f.caller(t, role.Authenticated)
	m := f.mission(t, "doomed")
	f.assign(t, m, employee)
	task, err := f.svc.CreateTask(f.ctx, mission.CreateTaskInput{Title: "t", Mission: m.DocumentID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, m.DocumentID))

	rows, err := f.svc.Assignments(f.ctx, employee, mission.AssignmentQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.missions.GetTaskByDocumentID(f.ctx, task.DocumentID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.svc.Delete(f.ctx, m.DocumentID)
	assert.Equal(t, "Mission not found", apperr.Message(err, ""))
}
