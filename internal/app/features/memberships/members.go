// internal/app/features/memberships/members.go
package memberships

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memberOp func(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error)

// runMemberOp parses {groupID} and {userID} and runs op on the pair's slot.
func (h *Handler) runMemberOp(w http.ResponseWriter, r *http.Request, name string, op memberOp) {
	groupID, ok := h.objectIDParam(w, r, "groupID", "group")
	if !ok {
		return
	}
	userID, ok := h.objectIDParam(w, r, "userID", "user")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, name)
	defer cancel()

	m, err := h.Slots.Execute(ctx, slotKey(groupID, userID), func(ctx context.Context) (models.GroupMembership, error) {
		return op(ctx, groupID, userID)
	}, nil)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, m)
}

// HandlePromote makes an active member a leader.
// POST /api/memberships/groups/{groupID}/members/{userID}/promote
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	h.runMemberOp(w, r, "memberships.promote", h.Lifecycle.Promote)
}

// HandleDemote makes a leader a member again.
// POST /api/memberships/groups/{groupID}/members/{userID}/demote
func (h *Handler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	h.runMemberOp(w, r, "memberships.demote", h.Lifecycle.Demote)
}

// HandleRemove soft-deletes a membership.
// POST /api/memberships/groups/{groupID}/members/{userID}/remove
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.runMemberOp(w, r, "memberships.remove", h.Lifecycle.RemoveMember)
}

// HandleLeave removes the caller from a group.
// POST /api/memberships/groups/{groupID}/leave
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.objectIDParam(w, r, "groupID", "group")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "memberships.leave")
	defer cancel()

	m, err := h.Lifecycle.LeaveGroup(ctx, groupID)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, m)
}

// ServeMembers lists a group's memberships for its leaders and church admins.
// GET /api/memberships/groups/{groupID}/members?status=pending|active|inactive|archived
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.objectIDParam(w, r, "groupID", "group")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "memberships.list")
	defer cancel()

	rows, err := h.Lifecycle.ListMembers(ctx, groupID, r.URL.Query().Get("status"))
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rows)
}
