// Package bootstrap seeds the global roles and their permission grants.
// Running it repeatedly converges on the same state: missing rows are added
// and nothing is removed.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
)

// Report describes the writes performed by a run.
type Report struct {
	RolesCreated       []string `json:"rolesCreated"`
	PermissionsGranted int      `json:"permissionsGranted"`
}

var roles = []role.CreateRoleInput{
	{Name: role.Admin, Description: "Global admin with full access", Type: "admin"},
	{Name: role.Manager, Description: "Global manager role", Type: "manager"},
	{Name: role.Reporter, Description: "Read-only access", Type: "reporter"},
	{Name: role.Authenticated, Description: "Default role given to authenticated user.", Type: "authenticated"},
	{Name: role.Public, Description: "Default role given to unauthenticated user.", Type: "public"},
}

var (
	organizationCustom = []string{
		role.ActionOrganizationGetMembers,
		role.ActionOrganizationAddMember,
		role.ActionOrganizationUpdateMember,
		role.ActionOrganizationRemoveMember,
	}
	missionCRUD = []string{
		role.ActionMissionFind,
		role.ActionMissionFindOne,
		role.ActionMissionCreate,
		role.ActionMissionUpdate,
		role.ActionMissionDelete,
	}
	missionCustom = []string{
		role.ActionMissionAssignUser,
		role.ActionMissionGetParticipants,
		role.ActionMissionRemoveParticipant,
		role.ActionMissionAssignOrganization,
	}
	missionUserCRUD = []string{
		role.ActionMissionUserFind,
		role.ActionMissionUserFindOne,
		role.ActionMissionUserCreate,
		role.ActionMissionUserUpdate,
		role.ActionMissionUserDelete,
	}
	taskCRUD = []string{
		role.ActionTaskFind,
		role.ActionTaskFindOne,
		role.ActionTaskCreate,
		role.ActionTaskUpdate,
		role.ActionTaskDelete,
	}
	userRead = []string{
		role.ActionUserMe,
		role.ActionUserFind,
		role.ActionUserFindOne,
	}
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Grants returns the fixed action set each role receives. Reporter has no
// grants.
func Grants() map[string][]string {
	return map[string][]string{
		role.Admin: concat(
			[]string{
				role.ActionOrganizationFind,
				role.ActionOrganizationFindOne,
				role.ActionOrganizationCreate,
				role.ActionOrganizationUpdate,
				role.ActionOrganizationDelete,
			},
			organizationCustom, missionCRUD, missionCustom, missionUserCRUD, taskCRUD, userRead,
			[]string{role.ActionUserUpdate, role.ActionRoleFind},
		),
		role.Manager: concat(
			[]string{
				role.ActionOrganizationFind,
				role.ActionOrganizationFindOne,
				role.ActionOrganizationUpdate,
			},
			organizationCustom, missionCRUD, missionCustom, missionUserCRUD, taskCRUD, userRead,
		),
		role.Authenticated: {
			role.ActionOrganizationFind,
			role.ActionOrganizationFindOne,
			role.ActionMissionFind,
			role.ActionMissionFindOne,
			role.ActionMissionUserFind,
			role.ActionMissionUserFindOne,
			role.ActionTaskFind,
			role.ActionTaskFindOne,
			role.ActionUserMe,
		},
		role.Public: {
			role.ActionAuthCallback,
			role.ActionAuthRegister,
		},
	}
}

// Run ensures every global role exists and holds its grants.
func Run(ctx context.Context, repo role.Repository) (*Report, error) {
	report := &Report{RolesCreated: []string{}}
	byName := make(map[string]*role.Role, len(roles))

	for _, in := range roles {
		r, err := repo.GetByName(ctx, in.Name)
		if err != nil && !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("looking up role %s: %w", in.Name, err)
		}
		if r == nil {
			r, err = repo.Create(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("creating role %s: %w", in.Name, err)
			}
			report.RolesCreated = append(report.RolesCreated, in.Name)
			slog.Info("bootstrap: created role", "role", in.Name)
		}
		byName[in.Name] = r
	}

	grants := Grants()
	for _, in := range roles {
		r := byName[in.Name]
		for _, action := range grants[in.Name] {
			added, err := repo.GrantAction(ctx, r.ID, action)
			if err != nil {
				return nil, fmt.Errorf("granting %s to %s: %w", action, in.Name, err)
			}
			if added {
				report.PermissionsGranted++
			}
		}
	}

	slog.Info("bootstrap complete",
		"roles_created", len(report.RolesCreated),
		"permissions_granted", report.PermissionsGranted,
	)
	return report, nil
}
