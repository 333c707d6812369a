package mission

import (
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
)

// Mission lifecycle states.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Assignment progress states.
const (
	AssignmentAssigned   = "assigned"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
)

// Task kinds.
const (
	TaskQuiz   = "quiz"
	TaskSurvey = "survey"
	TaskAction = "action"
	TaskOther  = "other"
)

var (
	validStatuses           = map[string]bool{StatusDraft: true, StatusActive: true, StatusCompleted: true}
	validAssignmentStatuses = map[string]bool{AssignmentAssigned: true, AssignmentInProgress: true, AssignmentCompleted: true}
	validTaskTypes          = map[string]bool{TaskQuiz: true, TaskSurvey: true, TaskAction: true, TaskOther: true}
)

// Mission is a unit of work assigned to users and made of ordered tasks.
type Mission struct {
	ID             int64             `json:"id"`
	DocumentID     string            `json:"documentId"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Status         string            `json:"status"`
	OrganizationID *int64            `json:"-"`
	Organization   *organization.Ref `json:"organization"`
	Tasks          []*Task           `json:"tasks"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Assignment records that a user participates in a mission.
type Assignment struct {
	ID          int64      `json:"id"`
	MissionID   int64      `json:"-"`
	UserID      int64      `json:"-"`
	Status      string     `json:"status"`
	AssignedAt  time.Time  `json:"assignedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	User        *user.User `json:"user,omitempty"`
	Mission     *Mission   `json:"mission,omitempty"`
}

// Task is a single ordered step of a mission.
type Task struct {
	ID          int64     `json:"id"`
	DocumentID  string    `json:"documentId"`
	MissionID   int64     `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateInput holds the fields accepted when creating a mission.
// Organization is an organization document id.
type CreateInput struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	Organization   *string `json:"organization,omitempty"`
	OrganizationID *int64  `json:"-"`
}

// UpdateInput holds optional fields for a partial mission update. An empty
// Organization detaches the mission from its organization.
type UpdateInput struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	Status            *string `json:"status,omitempty"`
	Organization      *string `json:"organization,omitempty"`
	OrganizationID    *int64  `json:"-"`
	ClearOrganization bool    `json:"-"`
}

// CreateTaskInput holds the fields accepted when creating a task. Mission
// is the owning mission's document id.
type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Order       int    `json:"order"`
	Mission     string `json:"mission"`
	MissionID   int64  `json:"-"`
}

// UpdateTaskInput holds optional fields for a partial task update.
type UpdateTaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

// AssignmentFilter narrows an assignment listing. A zero MissionID matches
// every mission; a nil UserIDs matches every user while an empty one
// matches none.
type AssignmentFilter struct {
	MissionID int64
	UserIDs   []int64
}

// AssignmentQuery is the caller-facing filter for assignment listings.
type AssignmentQuery struct {
	UserID  int64
	Mission string
}

// BulkResult summarizes an organization-wide assignment.
type BulkResult struct {
	Message      string   `json:"message"`
	AddedCount   int      `json:"addedCount"`
	TotalMembers int      `json:"totalMembers"`
	Errors       []string `json:"errors,omitempty"`
}
