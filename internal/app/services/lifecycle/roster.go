package lifecycle

import (
	"context"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var rosterStatuses = map[string]bool{
	models.MembershipPending:  true,
	models.MembershipActive:   true,
	models.MembershipInactive: true,
	models.MembershipArchived: true,
}

// ListMembers returns a group's memberships, oldest first, for the group's
// leaders and church administrators. A blank status lists every row;
// "pending" is the join-request queue.
func (s *Service) ListMembers(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.GroupMembership, error) {
	if status != "" && !rosterStatuses[status] {
		return nil, apperr.Validationf("Unknown membership status %q", status)
	}
	if err := s.authz.CanManageGroupMembership(ctx, groupID).Err(); err != nil {
		return nil, err
	}
	rows, err := s.memberships.ListByGroup(ctx, groupID, status)
	if err != nil {
		return nil, apperr.Classify(err, msgGroupNotFound)
	}
	if rows == nil {
		rows = []models.GroupMembership{}
	}
	return rows, nil
}
