// internal/app/features/memberships/requests.go
package memberships

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/services/lifecycle"
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type joinBody struct {
	UserID         primitive.ObjectID `json:"user_id"`
	ContactConsent bool               `json:"contact_consent"`
	Message        string             `json:"message"`
}

// HandleJoin asks to join a group. user_id defaults to the caller.
// POST /api/memberships/groups/{groupID}/join
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.objectIDParam(w, r, "groupID", "group")
	if !ok {
		return
	}
	var body joinBody
	if r.ContentLength != 0 {
		if err := uierrors.DecodeJSON(r, &body); err != nil {
			h.Errors.BadRequest(w, r, "Request body is not valid JSON.")
			return
		}
	}

	if h.JoinLimit != nil {
		if uid, ok := auth.UserIDFrom(r.Context()); ok {
			allowed := h.JoinLimit.Allow(uid.Hex())
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.JoinLimit.Remaining(uid.Hex())))
			if !allowed {
				uierrors.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many join requests. Please wait a few minutes and try again.")
				return
			}
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "memberships.join")
	defer cancel()

	m, err := h.Lifecycle.CreateJoinRequest(ctx, lifecycle.JoinRequest{
		GroupID:        groupID,
		UserID:         body.UserID,
		ContactConsent: body.ContactConsent,
		Message:        body.Message,
	})
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, m)
}

// HandleApproveRequest accepts a pending join request.
// POST /api/memberships/groups/{groupID}/requests/{userID}/approve
func (h *Handler) HandleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.runMemberOp(w, r, "memberships.approve_request", h.Lifecycle.ApproveJoinRequest)
}

// HandleDeclineRequest deletes a pending join request.
// POST /api/memberships/groups/{groupID}/requests/{userID}/decline
func (h *Handler) HandleDeclineRequest(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.objectIDParam(w, r, "groupID", "group")
	if !ok {
		return
	}
	userID, ok := h.objectIDParam(w, r, "userID", "user")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "memberships.decline_request")
	defer cancel()

	_, err := h.Slots.Execute(ctx, slotKey(groupID, userID), func(ctx context.Context) (models.GroupMembership, error) {
		return models.GroupMembership{}, h.Lifecycle.DeclineJoinRequest(ctx, groupID, userID)
	}, nil)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
