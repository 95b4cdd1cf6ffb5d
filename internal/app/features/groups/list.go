// internal/app/features/groups/list.go
package groups

import (
	"net/http"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var listableStatuses = map[string]bool{
	"":                   true,
	models.GroupPending:  true,
	models.GroupApproved: true,
	models.GroupDenied:   true,
	models.GroupClosed:   true,
}

// ServeList lists a church's groups.
// GET /api/groups?church_id=…&status=…
//
// church_id defaults to the caller's church.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "groups.list")
	defer cancel()

	caller, err := h.Authz.Caller(ctx)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	churchID := caller.ChurchID
	if raw := r.URL.Query().Get("church_id"); raw != "" {
		churchID, err = primitive.ObjectIDFromHex(raw)
		if err != nil {
			h.Errors.BadRequest(w, r, "Bad church id.")
			return
		}
	}
	status := r.URL.Query().Get("status")
	if !listableStatuses[status] {
		h.Errors.BadRequest(w, r, "Unknown group status.")
		return
	}

	if err := h.Authz.CanAccessChurchData(ctx, churchID).Err(); err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	groups, err := h.Groups.ListByChurch(ctx, churchID, status)
	if err != nil {
		h.Errors.Error(w, r, apperr.Classify(err, "Church not found"))
		return
	}
	if groups == nil {
		groups = []models.Group{}
	}
	uierrors.WriteJSON(w, http.StatusOK, groups)
}

// ServeGroup returns one group.
// GET /api/groups/{id}
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "groups.view")
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		h.Errors.Error(w, r, apperr.Classify(err, "Group not found"))
		return
	}
	if err := h.Authz.CanAccessChurchData(ctx, g.ChurchID).Err(); err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}
