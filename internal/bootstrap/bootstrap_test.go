package bootstrap

import (
	"context"
	"testing"

	"github.com/Ksenialiashchuk/test-portal/internal/memstore"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	roles := db.Roles()

	first, err := Run(ctx, roles)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{role.Admin, role.Manager, role.Reporter, role.Authenticated, role.Public},
		first.RolesCreated)

	want := 0
	for _, actions := range Grants() {
		want += len(actions)
	}
	assert.Equal(t, want, first.PermissionsGranted)
	assert.Equal(t, want, roles.PermissionCount())

	second, err := Run(ctx, roles)
	require.NoError(t, err)
	assert.Empty(t, second.RolesCreated)
	assert.Zero(t, second.PermissionsGranted)
	assert.Equal(t, want, roles.PermissionCount())

	all, err := roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRun_KeepsExistingRolesAndGrants(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	roles := db.Roles()

	existing, err := roles.Create(ctx, role.CreateRoleInput{Name: role.Public, Description: "custom", Type: "public"})
	require.NoError(t, err)
	_, err = roles.GrantAction(ctx, existing.ID, "custom.action")
	require.NoError(t, err)
	_, err = roles.GrantAction(ctx, existing.ID, role.ActionAuthRegister)
	require.NoError(t, err)

	report, err := Run(ctx, roles)
	require.NoError(t, err)
	assert.NotContains(t, report.RolesCreated, role.Public)

	actions, err := roles.ListActions(ctx, existing.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"custom.action", role.ActionAuthRegister, role.ActionAuthCallback}, actions)

	kept, err := roles.GetByName(ctx, role.Public)
	require.NoError(t, err)
	assert.Equal(t, "custom", kept.Description)
}

func TestGrants(t *testing.T) {
	grants := Grants()

	assert.Empty(t, grants[role.Reporter])
	assert.Contains(t, grants[role.Admin], role.ActionOrganizationDelete)
	assert.NotContains(t, grants[role.Manager], role.ActionOrganizationCreate)
	assert.NotContains(t, grants[role.Manager], role.ActionOrganizationDelete)
	assert.Contains(t, grants[role.Manager], role.ActionMissionAssignOrganization)
	assert.NotContains(t, grants[role.Authenticated], role.ActionMissionCreate)
	assert.Equal(t, []string{role.ActionAuthCallback, role.ActionAuthRegister}, grants[role.Public])

	for name, actions := range grants {
		seen := make(map[string]bool, len(actions))
		for _, a := range actions {
			assert.False(t, seen[a], "%s granted %s twice", name, a)
			seen[a] = true
		}
	}
}
