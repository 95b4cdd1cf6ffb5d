// internal/app/system/authz/permissions.go
package authz

// Permission names a capability evaluated by HasPermission.
type Permission string

// Church-scoped permissions: granted to church admins within their church.
const (
	ManageChurchGroups Permission = "manage_church_groups"
	ManageChurchUsers  Permission = "manage_church_users"
)

// Group-scoped permissions: granted to active leaders of the group.
const (
	ManageGroupMembers Permission = "manage_group_members"
	ReviewJoinRequests Permission = "review_join_requests"
)

// Self-scoped permissions: every signed-in user on their own records.
const (
	ReadOwnRecords   Permission = "read_own_records"
	ModifyOwnRecords Permission = "modify_own_records"
)

type scope int

const (
	scopeUnknown scope = iota
	scopeChurch
	scopeGroup
	scopeSelf
)

func (p Permission) scope() scope {
	switch p {
	case ManageChurchGroups, ManageChurchUsers:
		return scopeChurch
	case ManageGroupMembers, ReviewJoinRequests:
		return scopeGroup
	case ReadOwnRecords, ModifyOwnRecords:
		return scopeSelf
	default:
		return scopeUnknown
	}
}

// ResourceType identifies what CanModifyResource is asked about.
type ResourceType string

const (
	ResourceGroup      ResourceType = "group"
	ResourceMembership ResourceType = "membership"
	ResourceUser       ResourceType = "user"
)
