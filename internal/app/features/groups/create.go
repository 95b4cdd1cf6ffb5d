// internal/app/features/groups/create.go
package groups

import (
	"net/http"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/services/creation"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
)

// HandleCreate proposes a new group.
// POST /api/groups
//
// The creation saga is not retried here: a network failure after the
// insert reached the store would otherwise create a duplicate group.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in creation.GroupInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.Errors.BadRequest(w, r, "Request body is not valid group JSON.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.create")
	defer cancel()

	g, err := h.Saga.CreateGroupRequest(ctx, in)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, g)
}
