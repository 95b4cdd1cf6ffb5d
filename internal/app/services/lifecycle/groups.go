package lifecycle

import (
	"context"
	"errors"

	groupstore "github.com/dalemusser/fellowship/internal/app/store/groups"
	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fellowship/internal/app/system/resilient"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// groupTransition describes one edge of the group state machine.
type groupTransition struct {
	from, to    string
	conflictMsg string
	event       events.Type
}

var (
	approveGroup = groupTransition{models.GroupPending, models.GroupApproved, MsgGroupNotPending, events.GroupApproved}
	declineGroup = groupTransition{models.GroupPending, models.GroupDenied, MsgGroupNotPending, events.GroupDeclined}
	closeGroup   = groupTransition{models.GroupApproved, models.GroupClosed, MsgGroupNotApproved, events.GroupClosed}
)

// Approve moves a pending group to approved.
func (s *Service) Approve(ctx context.Context, groupID primitive.ObjectID) (models.Group, error) {
	return s.transitionGroup(ctx, groupID, approveGroup, "")
}

// Decline moves a pending group to denied, recording reason.
func (s *Service) Decline(ctx context.Context, groupID primitive.ObjectID, reason string) (models.Group, error) {
	return s.transitionGroup(ctx, groupID, declineGroup, htmlsanitize.PlainText(reason))
}

// Close moves an approved group to closed.
func (s *Service) Close(ctx context.Context, groupID primitive.ObjectID) (models.Group, error) {
	return s.transitionGroup(ctx, groupID, closeGroup, "")
}

func (s *Service) transitionGroup(ctx context.Context, groupID primitive.ObjectID, t groupTransition, reason string) (models.Group, error) {
	caller, err := s.authz.Caller(ctx)
	if err != nil {
		return models.Group{}, err
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return models.Group{}, apperr.Classify(err, msgGroupNotFound)
	}
	if err := s.authz.HasPermission(ctx, authz.ManageChurchGroups, g.ChurchID).Err(); err != nil {
		return models.Group{}, err
	}
	if g.Status != t.from {
		return models.Group{}, apperr.Conflict(t.conflictMsg)
	}
	rls := s.authz.ValidateRLSCompliance(ctx, authz.TableGroups, authz.OpUpdate, authz.RowPayload{
		ChurchID: g.ChurchID,
		GroupID:  g.ID,
		Status:   t.to,
	})
	if err := rls.Err(); err != nil {
		return models.Group{}, err
	}

	updated, err := s.groups.UpdateStatus(ctx, groupID, t.from, t.to, caller.ID, reason)
	if errors.Is(err, groupstore.ErrStatusMismatch) {
		// Someone else moved the group between our read and our write.
		return models.Group{}, apperr.Conflict(t.conflictMsg)
	}
	if err != nil {
		return models.Group{}, apperr.Classify(err, msgGroupNotFound)
	}

	s.log.Info("group status changed",
		zap.String("group_id", groupID.Hex()),
		zap.String("from", t.from),
		zap.String("to", t.to),
		zap.String("actor_id", caller.ID.Hex()))
	s.events.Publish(ctx, events.Event{
		Type:          t.event,
		ActorID:       caller.ID,
		ChurchID:      updated.ChurchID,
		GroupID:       updated.ID,
		GroupName:     updated.Name,
		UserID:        updated.CreatorID,
		PreviousValue: t.from,
		NewValue:      t.to,
		Reason:        reason,
	})
	return updated, nil
}

// BatchApproveGroups approves each group independently. Every id appears in
// exactly one of the result's Successful or Failed lists.
func (s *Service) BatchApproveGroups(ctx context.Context, groupIDs []primitive.ObjectID) resilient.BatchResult[primitive.ObjectID] {
	res := resilient.Batch(ctx, s.batch, groupIDs, func(ctx context.Context, id primitive.ObjectID) error {
		_, err := s.Approve(ctx, id)
		return err
	})
	s.log.Info("batch approve finished",
		zap.Int("requested", len(groupIDs)),
		zap.Int("approved", len(res.Successful)),
		zap.Int("failed", len(res.Failed)))
	return res
}
