package lifecycle

import (
	"context"
	"errors"

	membershipstore "github.com/dalemusser/fellowship/internal/app/store/memberships"
	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fellowship/internal/app/system/inputval"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// JoinRequest is the input to CreateJoinRequest. A zero UserID means the caller.
type JoinRequest struct {
	GroupID        primitive.ObjectID `json:"group_id" validate:"objectid"`
	UserID         primitive.ObjectID `json:"user_id"`
	ContactConsent bool               `json:"contact_consent"`
	Message        string             `json:"message" validate:"max=1000"`
}

// CreateJoinRequest asks to join an approved group. A user with an inactive
// or archived membership gets that same row back in pending status; a user
// with no row gets a new one.
func (s *Service) CreateJoinRequest(ctx context.Context, req JoinRequest) (models.GroupMembership, error) {
	caller, err := s.authz.Caller(ctx)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if req.UserID.IsZero() {
		req.UserID = caller.ID
	}
	if err := inputval.Check(req); err != nil {
		return models.GroupMembership{}, err
	}
	message := htmlsanitize.PlainText(req.Message)

	g, err := s.groups.GetByID(ctx, req.GroupID)
	if err != nil {
		return models.GroupMembership{}, apperr.Classify(err, msgGroupNotFound)
	}
	if err := s.authz.CanAccessChurchData(ctx, g.ChurchID).Err(); err != nil {
		return models.GroupMembership{}, err
	}
	if g.Status != models.GroupApproved {
		return models.GroupMembership{}, apperr.Conflict(MsgGroupNotApproved)
	}

	existing, err := s.memberships.Get(ctx, g.ID, req.UserID)
	switch {
	case err == nil:
		return s.reopen(ctx, caller, g, existing, req.ContactConsent, message)
	case errors.Is(err, mongo.ErrNoDocuments):
		return s.insertRequest(ctx, caller, g, req.UserID, req.ContactConsent, message)
	default:
		return models.GroupMembership{}, apperr.Classify(err, msgMembershipNotFound)
	}
}

func (s *Service) reopen(ctx context.Context, caller authz.Identity, g models.Group, m models.GroupMembership, consent bool, message string) (models.GroupMembership, error) {
	switch m.Status {
	case models.MembershipActive:
		return models.GroupMembership{}, apperr.Conflict(MsgAlreadyMember)
	case models.MembershipPending:
		return models.GroupMembership{}, apperr.Conflict(MsgPendingRequest)
	}

	t := target{caller: caller, group: g, m: m}
	if err := s.checkRowUpdate(ctx, t, models.RoleMember, models.MembershipPending); err != nil {
		return models.GroupMembership{}, err
	}
	previous := m.Status
	if err := s.memberships.Reopen(ctx, m.ID, previous, consent, message); err != nil {
		return models.GroupMembership{}, storeErr(err)
	}

	s.publish(ctx, events.JoinRequested, t, previous, models.MembershipPending)
	m.Status = models.MembershipPending
	m.Role = models.RoleMember
	m.ContactConsent = consent
	m.RequestMessage = message
	return m, nil
}

func (s *Service) insertRequest(ctx context.Context, caller authz.Identity, g models.Group, userID primitive.ObjectID, consent bool, message string) (models.GroupMembership, error) {
	rls := s.authz.ValidateRLSCompliance(ctx, authz.TableGroupMembership, authz.OpInsert, authz.RowPayload{
		ChurchID: g.ChurchID,
		GroupID:  g.ID,
		UserID:   userID,
		Role:     models.RoleMember,
		Status:   models.MembershipPending,
	})
	if err := rls.Err(); err != nil {
		return models.GroupMembership{}, err
	}

	m, err := s.memberships.Insert(ctx, models.GroupMembership{
		ChurchID:       g.ChurchID,
		GroupID:        g.ID,
		UserID:         userID,
		Role:           models.RoleMember,
		Status:         models.MembershipPending,
		ContactConsent: consent,
		RequestMessage: message,
	})
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		// A concurrent request created the row first.
		return models.GroupMembership{}, apperr.Conflict(MsgPendingRequest)
	}
	if err != nil {
		return models.GroupMembership{}, apperr.Classify(err, msgMembershipNotFound)
	}

	s.publish(ctx, events.JoinRequested, target{caller: caller, group: g, m: m}, "", models.MembershipPending)
	return m, nil
}
