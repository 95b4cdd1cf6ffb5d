// Package creation runs the multi-step group request flow. The group insert
// and the creator's leadership insert are not atomic; if the second fails the
// group is deleted again.
package creation

import (
	"context"
	"time"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fellowship/internal/app/system/inputval"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MsgLeadershipFailed is returned when the creator's leadership could not be
// recorded and the group was rolled back.
const MsgLeadershipFailed = "Failed to create group leadership"

// compensationTimeout bounds the rollback delete, which runs even when the
// caller's context is already done.
const compensationTimeout = 10 * time.Second

// GroupInput is a proposed group.
type GroupInput struct {
	ChurchID    primitive.ObjectID `json:"church_id" validate:"objectid"`
	ServiceID   primitive.ObjectID `json:"service_id" validate:"objectid"`
	Name        string             `json:"name" validate:"required,max=120"`
	Description string             `json:"description" validate:"max=2000"`
	MeetingDay  string             `json:"meeting_day" validate:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Location    string             `json:"location" validate:"max=200"`
	Capacity    int                `json:"capacity" validate:"min=0,max=1000"`
}

type ServiceSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.ChurchService, error)
}

type GroupStore interface {
	Create(ctx context.Context, g models.Group) (models.Group, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type MembershipStore interface {
	Insert(ctx context.Context, m models.GroupMembership) (models.GroupMembership, error)
}

// Saga creates group requests.
type Saga struct {
	services    ServiceSource
	groups      GroupStore
	memberships MembershipStore
	authz       *authz.Engine
	events      events.Publisher
	log         *zap.Logger
}

func New(services ServiceSource, groups GroupStore, memberships MembershipStore, engine *authz.Engine, pub events.Publisher, logger *zap.Logger) *Saga {
	return &Saga{
		services:    services,
		groups:      groups,
		memberships: memberships,
		authz:       engine,
		events:      pub,
		log:         logger,
	}
}

// CreateGroupRequest proposes a new group in pending status. A creator who
// administers the church (or is a superadmin) also becomes its first active
// leader; any other creator's group has no leaders until one is added.
func (s *Saga) CreateGroupRequest(ctx context.Context, in GroupInput) (models.Group, error) {
	caller, err := s.authz.Caller(ctx)
	if err != nil {
		return models.Group{}, err
	}
	in.Name = htmlsanitize.PlainText(in.Name)
	in.Description = htmlsanitize.PlainText(in.Description)
	in.Location = htmlsanitize.PlainText(in.Location)
	if err := inputval.Check(in); err != nil {
		return models.Group{}, err
	}

	// 1. Church access.
	if err := s.authz.CanAccessChurchData(ctx, in.ChurchID).Err(); err != nil {
		return models.Group{}, err
	}

	// 2. Row policy for the insert.
	rls := s.authz.ValidateRLSCompliance(ctx, authz.TableGroups, authz.OpInsert, authz.RowPayload{
		ChurchID:  in.ChurchID,
		ServiceID: in.ServiceID,
		CreatorID: caller.ID,
		Status:    models.GroupPending,
	})
	if err := rls.Err(); err != nil {
		return models.Group{}, err
	}

	// 3. The service must belong to the church.
	svc, err := s.services.GetByID(ctx, in.ServiceID)
	if err != nil {
		return models.Group{}, apperr.Classify(err, "Church service not found")
	}
	if svc.ChurchID != in.ChurchID {
		return models.Group{}, apperr.Validation("The selected service does not belong to this church")
	}

	// 4-5. Insert; nothing to undo if this fails.
	g, err := s.groups.Create(ctx, models.Group{
		ChurchID:    in.ChurchID,
		ServiceID:   in.ServiceID,
		CreatorID:   caller.ID,
		Name:        in.Name,
		Description: in.Description,
		MeetingDay:  in.MeetingDay,
		Location:    in.Location,
		Capacity:    in.Capacity,
		Status:      models.GroupPending,
	})
	if err != nil {
		return models.Group{}, apperr.Classify(err, "Group not found")
	}

	// 6-7. Leadership for elevated creators, with compensation.
	if caller.IsSuperAdmin() || caller.IsChurchAdminOf(in.ChurchID) {
		if err := s.addCreatorLeadership(ctx, caller, g); err != nil {
			s.compensate(ctx, g, err)
			return models.Group{}, apperr.Wrap(leadershipKind(err), MsgLeadershipFailed, err)
		}
	}

	// 8. Notify.
	s.log.Info("group request submitted",
		zap.String("group_id", g.ID.Hex()),
		zap.String("church_id", g.ChurchID.Hex()),
		zap.String("creator_id", caller.ID.Hex()))
	s.events.Publish(ctx, events.Event{
		Type:      events.GroupRequestSubmitted,
		ActorID:   caller.ID,
		ChurchID:  g.ChurchID,
		GroupID:   g.ID,
		GroupName: g.Name,
		UserID:    caller.ID,
		NewValue:  models.GroupPending,
	})
	return g, nil
}

func (s *Saga) addCreatorLeadership(ctx context.Context, caller authz.Identity, g models.Group) error {
	rls := s.authz.ValidateRLSCompliance(ctx, authz.TableGroupMembership, authz.OpInsert, authz.RowPayload{
		ChurchID: g.ChurchID,
		GroupID:  g.ID,
		UserID:   caller.ID,
		Role:     models.RoleLeader,
		Status:   models.MembershipActive,
	})
	if err := rls.Err(); err != nil {
		return err
	}
	joined := time.Now().UTC()
	_, err := s.memberships.Insert(ctx, models.GroupMembership{
		ChurchID: g.ChurchID,
		GroupID:  g.ID,
		UserID:   caller.ID,
		Role:     models.RoleLeader,
		Status:   models.MembershipActive,
		JoinedAt: &joined,
	})
	return err
}

// compensate deletes the group inserted earlier in the saga.
func (s *Saga) compensate(ctx context.Context, g models.Group, cause error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	n, err := s.groups.Delete(cctx, g.ID)
	if err != nil || n == 0 {
		s.log.Error("group creation rollback failed; orphaned pending group",
			zap.String("group_id", g.ID.Hex()),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	s.log.Warn("group creation rolled back",
		zap.String("group_id", g.ID.Hex()),
		zap.Error(cause))
}

// leadershipKind keeps permission and network categories from the failed
// step so the caller can tell a retryable failure from a terminal one.
func leadershipKind(err error) apperr.Kind {
	if k := apperr.KindOf(err); k != "" {
		return k
	}
	return apperr.KindOf(apperr.Classify(err, MsgLeadershipFailed))
}
