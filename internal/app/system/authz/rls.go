// internal/app/system/authz/rls.go
package authz

import (
	"context"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tables with row policies.
const (
	TableGroups          = "groups"
	TableGroupMembership = "group_memberships"
	TableMembershipNotes = "membership_notes"
)

// Row operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// RowPayload is the subset of a row the store's policies look at.
// Zero values mean "not part of this write".
type RowPayload struct {
	ChurchID  primitive.ObjectID
	ServiceID primitive.ObjectID
	GroupID   primitive.ObjectID
	UserID    primitive.ObjectID
	CreatorID primitive.ObjectID
	CreatedBy primitive.ObjectID
	Role      string
	Status    string
}

// ValidateRLSCompliance re-derives the store's row policy for a write and
// reports the specific reason it would be rejected. It runs before the write
// so callers get an actionable message instead of an opaque store refusal.
func (e *Engine) ValidateRLSCompliance(ctx context.Context, table, op string, p RowPayload) Decision {
	ident, err := e.Caller(ctx)
	if err != nil {
		return Fail(err)
	}

	switch table + ":" + op {
	case TableGroups + ":" + OpInsert:
		return groupInsertPolicy(ident, p)
	case TableGroups + ":" + OpUpdate:
		return e.withGroup(ctx, p.GroupID, func(g models.Group) Decision {
			if ident.IsSuperAdmin() || ident.IsChurchAdminOf(g.ChurchID) {
				return Allow()
			}
			return Deny("Only administrators of this group's church can update it")
		})
	case TableGroups + ":" + OpDelete:
		return e.withGroup(ctx, p.GroupID, func(g models.Group) Decision {
			if ident.IsSuperAdmin() || ident.IsChurchAdminOf(g.ChurchID) {
				return Allow()
			}
			if g.CreatorID == ident.ID && g.Status == models.GroupPending {
				return Allow()
			}
			return Deny("Only the creator of a pending group or a church administrator can delete it")
		})

	case TableGroupMembership + ":" + OpInsert:
		return e.membershipInsertPolicy(ctx, ident, p)
	case TableGroupMembership + ":" + OpUpdate:
		return e.withGroup(ctx, p.GroupID, func(g models.Group) Decision {
			if p.UserID == ident.ID && (p.Status == models.MembershipPending || p.Status == models.MembershipInactive) &&
				p.Role != models.RoleLeader {
				return Allow()
			}
			return e.managerOnly(ctx, ident, g, "Only group leaders or church administrators can change this membership")
		})
	case TableGroupMembership + ":" + OpDelete:
		return e.withGroup(ctx, p.GroupID, func(g models.Group) Decision {
			if p.UserID == ident.ID && p.Status == models.MembershipPending {
				return Allow()
			}
			return e.managerOnly(ctx, ident, g, "Only group leaders or church administrators can delete this membership")
		})

	case TableMembershipNotes + ":" + OpInsert:
		if p.CreatedBy != ident.ID {
			return Deny("Notes must be created by the signed-in user")
		}
		return e.withGroup(ctx, p.GroupID, func(g models.Group) Decision {
			if p.UserID == ident.ID {
				return Allow()
			}
			return e.managerOnly(ctx, ident, g, "Only group leaders or church administrators can write notes for this group")
		})

	default:
		return Denyf("No access policy allows %s on %s", op, table)
	}
}

func groupInsertPolicy(ident Identity, p RowPayload) Decision {
	if p.ChurchID.IsZero() {
		return Deny("church_id is required")
	}
	if p.ServiceID.IsZero() {
		return Deny("service_id is required")
	}
	if !ident.IsSuperAdmin() && p.ChurchID != ident.ChurchID {
		return Deny("You can only create groups in your own church")
	}
	if !p.CreatorID.IsZero() && p.CreatorID != ident.ID {
		return Deny("creator_id must be the signed-in user")
	}
	if p.Status != "" && p.Status != models.GroupPending {
		return Deny("New groups must start as pending")
	}
	return Allow()
}

func (e *Engine) membershipInsertPolicy(ctx context.Context, ident Identity, p RowPayload) Decision {
	if p.UserID.IsZero() {
		return Deny("user_id is required")
	}
	return e.withGroup(ctx, p.GroupID, func(g models.Group) Decision {
		if !ident.IsSuperAdmin() && g.ChurchID != ident.ChurchID {
			return Deny("You can only join groups in your own church")
		}
		selfRequest := p.UserID == ident.ID &&
			(p.Role == "" || p.Role == models.RoleMember) &&
			p.Status == models.MembershipPending
		if selfRequest {
			return Allow()
		}
		return e.managerOnly(ctx, ident, g, "Only group leaders or church administrators can add members directly")
	})
}

func (e *Engine) withGroup(ctx context.Context, groupID primitive.ObjectID, fn func(models.Group) Decision) Decision {
	if groupID.IsZero() {
		return Deny("group_id is required")
	}
	g, err := e.groups.GetByID(ctx, groupID)
	if err != nil {
		return Fail(apperr.Classify(err, "Group not found"))
	}
	return fn(g)
}

func (e *Engine) managerOnly(ctx context.Context, ident Identity, g models.Group, reason string) Decision {
	ok, err := e.manages(ctx, ident, g)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		return Deny(reason)
	}
	return Allow()
}
