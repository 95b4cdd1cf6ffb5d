// internal/app/system/authz/engine.go
package authz

import (
	"context"
	"strings"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Identity is the caller as seen by authorization checks.
type Identity struct {
	ID       primitive.ObjectID
	ChurchID primitive.ObjectID
	Roles    []string
	Disabled bool
}

// Has reports whether the identity holds role. Every signed-in user is a member.
func (i Identity) Has(role string) bool {
	if role == models.UserRoleMember {
		return true
	}
	for _, r := range i.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the identity is a superadmin.
func (i Identity) IsSuperAdmin() bool { return i.Has(models.UserRoleSuperAdmin) }

// IsChurchAdminOf reports whether the identity administers churchID.
func (i Identity) IsChurchAdminOf(churchID primitive.ObjectID) bool {
	return i.Has(models.UserRoleChurchAdmin) && !churchID.IsZero() && i.ChurchID == churchID
}

// UserSource loads user records.
type UserSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// GroupSource loads groups.
type GroupSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
}

// MembershipSource loads memberships and answers leader questions from the
// authoritative group_memberships collection.
type MembershipSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupMembership, error)
	IsActiveLeader(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error)
}

// Engine answers role, permission and row-policy questions about the caller
// in ctx. It owns the identity cache.
type Engine struct {
	users       UserSource
	groups      GroupSource
	memberships MembershipSource
	cache       *IdentityCache
	fetches     singleflight.Group
	log         *zap.Logger
}

// NewEngine constructs an Engine with an empty identity cache.
func NewEngine(users UserSource, groups GroupSource, memberships MembershipSource, logger *zap.Logger) *Engine {
	return &Engine{
		users:       users,
		groups:      groups,
		memberships: memberships,
		cache:       NewIdentityCache(),
		log:         logger,
	}
}

// ClearUserCache drops every cached identity. Call after sign-in, sign-out,
// or any role change.
func (e *Engine) ClearUserCache() {
	e.cache.Clear()
	e.log.Debug("identity cache cleared")
}

// InvalidateUser drops one cached identity.
func (e *Engine) InvalidateUser(id primitive.ObjectID) {
	e.cache.Invalidate(id)
}

// Caller resolves the signed-in user's identity. A missing session or an
// unknown / disabled user yields an auth error.
func (e *Engine) Caller(ctx context.Context) (Identity, error) {
	uid, ok := auth.UserIDFrom(ctx)
	if !ok {
		return Identity{}, apperr.Auth("You must be signed in.")
	}
	ident, err := e.Identity(ctx, uid)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return Identity{}, apperr.Auth("Your account could not be found. Please sign in again.")
	}
	if err != nil {
		return Identity{}, err
	}
	if ident.Disabled {
		return Identity{}, apperr.Auth("Your account is disabled.")
	}
	return ident, nil
}

// Identity resolves any user's identity through the cache. Concurrent misses
// for the same user share one fetch, which runs detached from any single
// caller so one canceled request does not fail the others.
func (e *Engine) Identity(ctx context.Context, userID primitive.ObjectID) (Identity, error) {
	if ident, ok := e.cache.Get(userID); ok {
		return ident, nil
	}

	ch := e.fetches.DoChan(userID.Hex(), func() (interface{}, error) {
		gen := e.cache.Generation()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
		defer cancel()

		u, err := e.users.GetByID(fctx, userID)
		if err != nil {
			return Identity{}, apperr.Classify(err, "User not found")
		}
		ident := Identity{
			ID:       u.ID,
			ChurchID: u.ChurchID,
			Roles:    append([]string(nil), u.Roles...),
			Disabled: u.Status == "disabled",
		}
		if !e.cache.Set(ident, gen) {
			e.log.Debug("identity changed during fetch; not cached", zap.String("user_id", userID.Hex()))
		}
		return ident, nil
	})

	select {
	case <-ctx.Done():
		return Identity{}, apperr.Classify(ctx.Err(), "")
	case res := <-ch:
		if res.Err != nil {
			return Identity{}, res.Err
		}
		return res.Val.(Identity), nil
	}
}

// HasRole reports whether the caller holds role.
func (e *Engine) HasRole(ctx context.Context, role string) bool {
	return e.HasAnyRole(ctx, role)
}

// HasAnyRole reports whether the caller holds any of roles.
// Returns false if no caller can be resolved.
func (e *Engine) HasAnyRole(ctx context.Context, roles ...string) bool {
	ident, err := e.Caller(ctx)
	if err != nil {
		return false
	}
	for _, r := range roles {
		if ident.Has(strings.TrimSpace(r)) {
			return true
		}
	}
	return false
}

// HasPermission evaluates perm for the caller against resourceID. The
// resource is a church ID for church-scoped permissions, a group ID for
// group-scoped ones, and a user ID for self-scoped ones. A zero resourceID
// means "the caller's own" for church and self scopes.
func (e *Engine) HasPermission(ctx context.Context, perm Permission, resourceID primitive.ObjectID) Decision {
	ident, err := e.Caller(ctx)
	if err != nil {
		return Fail(err)
	}
	if ident.IsSuperAdmin() {
		return Allow()
	}

	switch perm.scope() {
	case scopeChurch:
		if !ident.Has(models.UserRoleChurchAdmin) {
			return Denyf("Only church administrators have the %s permission", perm)
		}
		target := resourceID
		if target.IsZero() {
			target = ident.ChurchID
		}
		if target != ident.ChurchID {
			return Deny("Church administrators can only act within their own church")
		}
		return Allow()

	case scopeGroup:
		if resourceID.IsZero() {
			return Denyf("The %s permission requires a group", perm)
		}
		leader, err := e.memberships.IsActiveLeader(ctx, resourceID, ident.ID)
		if err != nil {
			return Fail(apperr.Classify(err, "Membership not found"))
		}
		if !leader {
			return Deny("You are not an active leader of this group")
		}
		return Allow()

	case scopeSelf:
		if resourceID.IsZero() || resourceID == ident.ID {
			return Allow()
		}
		return Deny("You can only access your own records")

	default:
		return Denyf("Unknown permission %q", perm)
	}
}

// CanAccessChurchData allows the caller's own church, or any church for a superadmin.
func (e *Engine) CanAccessChurchData(ctx context.Context, churchID primitive.ObjectID) Decision {
	ident, err := e.Caller(ctx)
	if err != nil {
		return Fail(err)
	}
	if ident.IsSuperAdmin() {
		return Allow()
	}
	if churchID.IsZero() || churchID != ident.ChurchID {
		return Deny("You do not have access to this church")
	}
	return Allow()
}

// CanManageGroupMembership allows active leaders of the group and the
// administrators of the group's church.
func (e *Engine) CanManageGroupMembership(ctx context.Context, groupID primitive.ObjectID) Decision {
	ident, err := e.Caller(ctx)
	if err != nil {
		return Fail(err)
	}
	if ident.IsSuperAdmin() {
		return Allow()
	}
	g, err := e.groups.GetByID(ctx, groupID)
	if err != nil {
		return Fail(apperr.Classify(err, "Group not found"))
	}
	ok, err := e.manages(ctx, ident, g)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		return Deny("You do not have permission to manage this group's members")
	}
	return Allow()
}

// CanModifyResource allows the owner of a resource, and elevated roles
// scoped to it: superadmins everywhere, church admins within their church,
// group leaders within their group.
func (e *Engine) CanModifyResource(ctx context.Context, rt ResourceType, resourceID, ownerID primitive.ObjectID) Decision {
	ident, err := e.Caller(ctx)
	if err != nil {
		return Fail(err)
	}
	if !ownerID.IsZero() && ownerID == ident.ID {
		return Allow()
	}
	if ident.IsSuperAdmin() {
		return Allow()
	}

	var ok bool
	switch rt {
	case ResourceGroup:
		g, gerr := e.groups.GetByID(ctx, resourceID)
		if gerr != nil {
			return Fail(apperr.Classify(gerr, "Group not found"))
		}
		ok, err = e.manages(ctx, ident, g)

	case ResourceMembership:
		m, merr := e.memberships.GetByID(ctx, resourceID)
		if merr != nil {
			return Fail(apperr.Classify(merr, "Membership not found"))
		}
		if m.UserID == ident.ID {
			return Allow()
		}
		if ident.IsChurchAdminOf(m.ChurchID) {
			return Allow()
		}
		ok, err = e.memberships.IsActiveLeader(ctx, m.GroupID, ident.ID)
		err = apperr.Classify(err, "Membership not found")

	case ResourceUser:
		if resourceID == ident.ID {
			return Allow()
		}
		other, uerr := e.Identity(ctx, resourceID)
		if uerr != nil {
			return Fail(uerr)
		}
		ok = ident.IsChurchAdminOf(other.ChurchID)

	default:
		return Denyf("Unknown resource type %q", rt)
	}

	if err != nil {
		return Fail(err)
	}
	if !ok {
		return Denyf("You do not have permission to modify this %s", rt)
	}
	return Allow()
}

// manages reports whether ident administers g's church or actively leads g.
func (e *Engine) manages(ctx context.Context, ident Identity, g models.Group) (bool, error) {
	if ident.IsSuperAdmin() || ident.IsChurchAdminOf(g.ChurchID) {
		return true, nil
	}
	leader, err := e.memberships.IsActiveLeader(ctx, g.ID, ident.ID)
	if err != nil {
		return false, apperr.Classify(err, "Membership not found")
	}
	return leader, nil
}
