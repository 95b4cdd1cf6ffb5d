// Package lifecycle implements the group and membership state machines:
// approving, declining and closing groups; promoting, demoting and removing
// members; and the join-request flow. Every mutation is preceded by an
// authorization check and followed by a domain event.
package lifecycle

import (
	"context"
	"time"

	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/resilient"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Conflict messages callers match on.
const (
	MsgGroupNotPending    = "Group is not pending approval"
	MsgGroupNotApproved   = "Group is not approved"
	MsgAlreadyLeader      = "User is already a leader"
	MsgNotActiveMember    = "User is not an active member of this group"
	MsgNotLeader          = "User is not a leader of this group"
	MsgLastLeaderDemote   = "Cannot demote the last leader of the group"
	MsgLastLeaderRemove   = "Cannot remove the last leader of the group"
	MsgAlreadyMember      = "User is already a member of this group"
	MsgPendingRequest     = "User already has a pending request for this group"
	MsgRequestNotPending  = "Join request is not pending"
	MsgMembershipChanged  = "Membership changed while updating; reload and try again"
	msgGroupNotFound      = "Group not found"
	msgMembershipNotFound = "Membership not found"
)

// GroupStore is the groups collection as the service uses it.
type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, actorID primitive.ObjectID, reason string) (models.Group, error)
}

// MembershipStore is the group_memberships collection as the service uses it.
type MembershipStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupMembership, error)
	Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error)
	Insert(ctx context.Context, m models.GroupMembership) (models.GroupMembership, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, from, to string) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, joinedAt *time.Time) error
	Reopen(ctx context.Context, id primitive.ObjectID, from string, contactConsent bool, message string) error
	DeletePending(ctx context.Context, id primitive.ObjectID) error
	CountActiveLeaders(ctx context.Context, groupID primitive.ObjectID) (int64, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.GroupMembership, error)
}

// Service runs group and membership transitions.
type Service struct {
	groups      GroupStore
	memberships MembershipStore
	authz       *authz.Engine
	events      events.Publisher
	batch       resilient.Config
	log         *zap.Logger
	now         func() time.Time
}

// New constructs a Service. batch configures retries for BatchApproveGroups.
func New(groups GroupStore, memberships MembershipStore, engine *authz.Engine, pub events.Publisher, batch resilient.Config, logger *zap.Logger) *Service {
	if batch.Name == "" {
		batch.Name = "batch_approve_groups"
	}
	return &Service{
		groups:      groups,
		memberships: memberships,
		authz:       engine,
		events:      pub,
		batch:       batch,
		log:         logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}
