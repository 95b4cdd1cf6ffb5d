// internal/app/features/groups/status.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxBatch bounds one batch-approve request.
const maxBatch = 200

type declineBody struct {
	Reason string `json:"reason"`
}

type batchBody struct {
	GroupIDs []primitive.ObjectID `json:"group_ids"`
}

type batchFailure struct {
	GroupID primitive.ObjectID `json:"group_id"`
	Kind    string             `json:"kind"`
	Message string             `json:"message"`
}

type batchResponse struct {
	Successful []primitive.ObjectID `json:"successful"`
	Failed     []batchFailure       `json:"failed"`
}

func (h *Handler) groupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.Errors.BadRequest(w, r, "Bad group id.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// transition runs op on the group's executor slot and writes the result.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, name string, op func(ctx context.Context, id primitive.ObjectID) (models.Group, error)) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, name)
	defer cancel()

	g, err := h.Slots.Execute(ctx, id.Hex(), func(ctx context.Context) (models.Group, error) {
		return op(ctx, id)
	}, nil)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleApprove approves a pending group.
// POST /api/groups/{id}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "groups.approve", h.Lifecycle.Approve)
}

// HandleDecline declines a pending group with an optional reason.
// POST /api/groups/{id}/decline
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	var body declineBody
	if r.ContentLength != 0 {
		if err := uierrors.DecodeJSON(r, &body); err != nil {
			h.Errors.BadRequest(w, r, "Request body is not valid JSON.")
			return
		}
	}
	h.transition(w, r, "groups.decline", func(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
		return h.Lifecycle.Decline(ctx, id, body.Reason)
	})
}

// HandleClose closes an approved group.
// POST /api/groups/{id}/close
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "groups.close", h.Lifecycle.Close)
}

// HandleBatchApprove approves several groups; each succeeds or fails on its own.
// POST /api/groups/batch-approve
func (h *Handler) HandleBatchApprove(w http.ResponseWriter, r *http.Request) {
	var body batchBody
	if err := uierrors.DecodeJSON(r, &body); err != nil {
		h.Errors.BadRequest(w, r, "Request body must be {\"group_ids\": [...]}.")
		return
	}
	if len(body.GroupIDs) == 0 {
		h.Errors.BadRequest(w, r, "group_ids is required.")
		return
	}
	if len(body.GroupIDs) > maxBatch {
		h.Errors.Error(w, r, apperr.Validationf("At most %d groups can be approved at once.", maxBatch))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "groups.batch_approve")
	defer cancel()

	if _, err := h.Authz.Caller(ctx); err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	res := h.Lifecycle.BatchApproveGroups(ctx, body.GroupIDs)

	out := batchResponse{
		Successful: res.Successful,
		Failed:     make([]batchFailure, 0, len(res.Failed)),
	}
	for _, f := range res.Failed {
		err := apperr.Classify(f.Err, "Group not found")
		if apperr.IsKind(err, apperr.KindNetwork) {
			h.Log.Warn("batch approve: group failed after retries",
				zap.String("group_id", f.Item.Hex()),
				zap.Error(f.Err))
		}
		out.Failed = append(out.Failed, batchFailure{
			GroupID: f.Item,
			Kind:    string(apperr.KindOf(err)),
			Message: err.Error(),
		})
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}
