package lifecycle

import (
	"context"
	"errors"

	membershipstore "github.com/dalemusser/fellowship/internal/app/store/memberships"
	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// target is a membership being acted on, with its group and the acting caller.
type target struct {
	caller authz.Identity
	group  models.Group
	m      models.GroupMembership
}

// loadManaged resolves the caller, the group and the (groupID, userID)
// membership, and requires the caller to manage the group's members.
// CanManageGroupMembership only allows church admins and superadmins of the
// group's church or active leaders of the group, so the acting user is
// always one of those.
func (s *Service) loadManaged(ctx context.Context, groupID, userID primitive.ObjectID) (target, error) {
	caller, err := s.authz.Caller(ctx)
	if err != nil {
		return target{}, err
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return target{}, apperr.Classify(err, msgGroupNotFound)
	}
	if err := s.authz.CanManageGroupMembership(ctx, groupID).Err(); err != nil {
		return target{}, err
	}
	m, err := s.memberships.Get(ctx, groupID, userID)
	if err != nil {
		return target{}, apperr.Classify(err, msgMembershipNotFound)
	}
	return target{caller: caller, group: g, m: m}, nil
}

func (s *Service) checkRowUpdate(ctx context.Context, t target, role, status string) error {
	return s.authz.ValidateRLSCompliance(ctx, authz.TableGroupMembership, authz.OpUpdate, authz.RowPayload{
		ChurchID: t.group.ChurchID,
		GroupID:  t.group.ID,
		UserID:   t.m.UserID,
		Role:     role,
		Status:   status,
	}).Err()
}

// storeErr maps a membership store error to the service's taxonomy.
func storeErr(err error) error {
	if errors.Is(err, membershipstore.ErrStateChanged) {
		return apperr.Conflict(MsgMembershipChanged)
	}
	return apperr.Classify(err, msgMembershipNotFound)
}

func (s *Service) publish(ctx context.Context, typ events.Type, t target, prev, next string) {
	s.log.Info("membership changed",
		zap.String("event_type", string(typ)),
		zap.String("membership_id", t.m.ID.Hex()),
		zap.String("group_id", t.group.ID.Hex()),
		zap.String("from", prev),
		zap.String("to", next))
	s.events.Publish(ctx, events.Event{
		Type:          typ,
		ActorID:       t.caller.ID,
		ChurchID:      t.group.ChurchID,
		GroupID:       t.group.ID,
		GroupName:     t.group.Name,
		MembershipID:  t.m.ID,
		UserID:        t.m.UserID,
		PreviousValue: prev,
		NewValue:      next,
	})
}

// Promote makes an active member a leader.
func (s *Service) Promote(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	t, err := s.loadManaged(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if t.m.Status != models.MembershipActive {
		return models.GroupMembership{}, apperr.Conflict(MsgNotActiveMember)
	}
	if t.m.Role == models.RoleLeader {
		return models.GroupMembership{}, apperr.Conflict(MsgAlreadyLeader)
	}
	if err := s.checkRowUpdate(ctx, t, models.RoleLeader, models.MembershipActive); err != nil {
		return models.GroupMembership{}, err
	}
	if err := s.memberships.UpdateRole(ctx, t.m.ID, models.RoleMember, models.RoleLeader); err != nil {
		return models.GroupMembership{}, storeErr(err)
	}

	s.publish(ctx, events.MemberPromoted, t, models.RoleMember, models.RoleLeader)
	t.m.Role = models.RoleLeader
	return t.m, nil
}

// Demote makes a leader a member. The group's only active leader cannot be
// demoted.
func (s *Service) Demote(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	t, err := s.loadManaged(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if t.m.Status != models.MembershipActive || t.m.Role != models.RoleLeader {
		return models.GroupMembership{}, apperr.Conflict(MsgNotLeader)
	}
	if err := s.requireOtherLeader(ctx, groupID, MsgLastLeaderDemote); err != nil {
		return models.GroupMembership{}, err
	}
	if err := s.checkRowUpdate(ctx, t, models.RoleMember, models.MembershipActive); err != nil {
		return models.GroupMembership{}, err
	}
	if err := s.memberships.UpdateRole(ctx, t.m.ID, models.RoleLeader, models.RoleMember); err != nil {
		return models.GroupMembership{}, storeErr(err)
	}
	if err := s.verifyLeaderRemains(ctx, groupID, MsgLastLeaderDemote, func(ctx context.Context) error {
		return s.memberships.UpdateRole(ctx, t.m.ID, models.RoleMember, models.RoleLeader)
	}); err != nil {
		return models.GroupMembership{}, err
	}

	s.publish(ctx, events.MemberDemoted, t, models.RoleLeader, models.RoleMember)
	t.m.Role = models.RoleMember
	return t.m, nil
}

// RemoveMember soft-deletes an active membership by making it inactive.
// The group's only active leader cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	t, err := s.loadManaged(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	return s.deactivate(ctx, t, events.MemberRemoved)
}

// LeaveGroup lets the caller end their own active membership.
func (s *Service) LeaveGroup(ctx context.Context, groupID primitive.ObjectID) (models.GroupMembership, error) {
	caller, err := s.authz.Caller(ctx)
	if err != nil {
		return models.GroupMembership{}, err
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return models.GroupMembership{}, apperr.Classify(err, msgGroupNotFound)
	}
	m, err := s.memberships.Get(ctx, groupID, caller.ID)
	if err != nil {
		return models.GroupMembership{}, apperr.Classify(err, msgMembershipNotFound)
	}
	return s.deactivate(ctx, target{caller: caller, group: g, m: m}, events.MemberLeft)
}

func (s *Service) deactivate(ctx context.Context, t target, typ events.Type) (models.GroupMembership, error) {
	if t.m.Status != models.MembershipActive {
		return models.GroupMembership{}, apperr.Conflict(MsgNotActiveMember)
	}
	wasLeader := t.m.Role == models.RoleLeader
	if wasLeader {
		if err := s.requireOtherLeader(ctx, t.group.ID, MsgLastLeaderRemove); err != nil {
			return models.GroupMembership{}, err
		}
	}
	// The row policy lets a user end their own membership; the role is not
	// part of this write.
	if err := s.checkRowUpdate(ctx, t, "", models.MembershipInactive); err != nil {
		return models.GroupMembership{}, err
	}
	if err := s.memberships.UpdateStatus(ctx, t.m.ID, models.MembershipActive, models.MembershipInactive, nil); err != nil {
		return models.GroupMembership{}, storeErr(err)
	}
	if wasLeader {
		if err := s.verifyLeaderRemains(ctx, t.group.ID, MsgLastLeaderRemove, func(ctx context.Context) error {
			return s.memberships.UpdateStatus(ctx, t.m.ID, models.MembershipInactive, models.MembershipActive, nil)
		}); err != nil {
			return models.GroupMembership{}, err
		}
	}

	s.publish(ctx, typ, t, models.MembershipActive, models.MembershipInactive)
	t.m.Status = models.MembershipInactive
	return t.m, nil
}

// requireOtherLeader rejects with msg unless the group has at least two
// active leaders.
func (s *Service) requireOtherLeader(ctx context.Context, groupID primitive.ObjectID, msg string) error {
	n, err := s.memberships.CountActiveLeaders(ctx, groupID)
	if err != nil {
		return apperr.Classify(err, msgGroupNotFound)
	}
	if n <= 1 {
		return apperr.Conflict(msg)
	}
	return nil
}

// verifyLeaderRemains re-counts leaders after a write that removed one. If a
// concurrent write removed the other leader, undo restores this one and the
// operation fails with msg. The re-count and undo run detached from ctx so a
// superseded caller cannot skip them.
func (s *Service) verifyLeaderRemains(ctx context.Context, groupID primitive.ObjectID, msg string, undo func(context.Context) error) error {
	vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()

	n, err := s.memberships.CountActiveLeaders(vctx, groupID)
	if err != nil {
		// The pre-check passed, so the write stands.
		s.log.Warn("leader re-count failed; keeping write",
			zap.String("group_id", groupID.Hex()),
			zap.Error(err))
		return nil
	}
	if n > 0 {
		return nil
	}
	if uerr := undo(vctx); uerr != nil {
		s.log.Error("failed to restore last leader",
			zap.String("group_id", groupID.Hex()),
			zap.Error(uerr))
		return apperr.Classify(uerr, msgMembershipNotFound)
	}
	return apperr.Conflict(msg)
}

// ApproveJoinRequest activates a pending membership.
func (s *Service) ApproveJoinRequest(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	t, err := s.loadManaged(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if t.m.Status != models.MembershipPending {
		return models.GroupMembership{}, apperr.Conflict(MsgRequestNotPending)
	}
	if err := s.checkRowUpdate(ctx, t, t.m.Role, models.MembershipActive); err != nil {
		return models.GroupMembership{}, err
	}
	joined := s.now()
	if err := s.memberships.UpdateStatus(ctx, t.m.ID, models.MembershipPending, models.MembershipActive, &joined); err != nil {
		return models.GroupMembership{}, storeErr(err)
	}

	s.publish(ctx, events.JoinApproved, t, models.MembershipPending, models.MembershipActive)
	t.m.Status = models.MembershipActive
	t.m.JoinedAt = &joined
	return t.m, nil
}

// DeclineJoinRequest deletes a pending membership. The row never represented
// a committed member.
func (s *Service) DeclineJoinRequest(ctx context.Context, groupID, userID primitive.ObjectID) error {
	t, err := s.loadManaged(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if t.m.Status != models.MembershipPending {
		return apperr.Conflict(MsgRequestNotPending)
	}
	rls := s.authz.ValidateRLSCompliance(ctx, authz.TableGroupMembership, authz.OpDelete, authz.RowPayload{
		ChurchID: t.group.ChurchID,
		GroupID:  t.group.ID,
		UserID:   t.m.UserID,
		Status:   t.m.Status,
	})
	if err := rls.Err(); err != nil {
		return err
	}
	if err := s.memberships.DeletePending(ctx, t.m.ID); err != nil {
		return storeErr(err)
	}

	s.publish(ctx, events.JoinDeclined, t, models.MembershipPending, "")
	return nil
}
