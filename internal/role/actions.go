package role

// Action identifiers checked by the permission gate.
const (
	ActionOrganizationFind         = "organization.find"
	ActionOrganizationFindOne      = "organization.findOne"
	ActionOrganizationCreate       = "organization.create"
	ActionOrganizationUpdate       = "organization.update"
	ActionOrganizationDelete       = "organization.delete"
	ActionOrganizationGetMembers   = "organization.getMembers"
	ActionOrganizationAddMember    = "organization.addMember"
	ActionOrganizationUpdateMember = "organization.updateMember"
	ActionOrganizationRemoveMember = "organization.removeMember"

	ActionMissionFind               = "mission.find"
	ActionMissionFindOne            = "mission.findOne"
	ActionMissionCreate             = "mission.create"
	ActionMissionUpdate             = "mission.update"
	ActionMissionDelete             = "mission.delete"
	ActionMissionAssignUser         = "mission.assignUser"
	ActionMissionGetParticipants    = "mission.getParticipants"
	ActionMissionRemoveParticipant  = "mission.removeParticipant"
	ActionMissionAssignOrganization = "mission.assignOrganization"

	ActionMissionUserFind    = "mission-user.find"
	ActionMissionUserFindOne = "mission-user.findOne"
	ActionMissionUserCreate  = "mission-user.create"
	ActionMissionUserUpdate  = "mission-user.update"
	ActionMissionUserDelete  = "mission-user.delete"

	ActionTaskFind    = "task.find"
	ActionTaskFindOne = "task.findOne"
	ActionTaskCreate  = "task.create"
	ActionTaskUpdate  = "task.update"
	ActionTaskDelete  = "task.delete"

	ActionUserMe      = "user.me"
	ActionUserFind    = "user.find"
	ActionUserFindOne = "user.findOne"
	ActionUserUpdate  = "user.update"

	ActionRoleFind = "role.find"

	ActionAuthCallback = "auth.callback"
	ActionAuthRegister = "auth.register"
)
