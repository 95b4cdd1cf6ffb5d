// internal/app/features/memberships/notes.go
package memberships

import (
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
)

const (
	defaultNotesLimit = 50
	maxNotesLimit     = 200
)

type noteBody struct {
	Content string `json:"content"`
}

// ServeNotes lists a membership's notes, newest first.
// GET /api/memberships/{membershipID}/notes?limit=…
func (h *Handler) ServeNotes(w http.ResponseWriter, r *http.Request) {
	membershipID, ok := h.objectIDParam(w, r, "membershipID", "membership")
	if !ok {
		return
	}
	limit := int64(defaultNotesLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			h.Errors.BadRequest(w, r, "limit must be a positive number.")
			return
		}
		limit = min(n, maxNotesLimit)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "memberships.notes")
	defer cancel()

	out, err := h.Notes.List(ctx, membershipID, limit)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	if out == nil {
		out = []models.MembershipNote{}
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

// HandleAddNote records a manual note on a membership.
// POST /api/memberships/{membershipID}/notes
func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	membershipID, ok := h.objectIDParam(w, r, "membershipID", "membership")
	if !ok {
		return
	}
	var body noteBody
	if err := uierrors.DecodeJSON(r, &body); err != nil {
		h.Errors.BadRequest(w, r, "Request body must be {\"content\": \"...\"}.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "memberships.add_note")
	defer cancel()

	n, err := h.Notes.AddManual(ctx, membershipID, body.Content)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, n)
}
