// internal/app/features/memberships/handler.go
package memberships

import (
	"net/http"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/services/lifecycle"
	"github.com/dalemusser/fellowship/internal/app/system/notes"
	"github.com/dalemusser/fellowship/internal/app/system/ratelimit"
	"github.com/dalemusser/fellowship/internal/app/system/resilient"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the membership API: joining and leaving groups, leader
// actions on members, join-request review and membership notes.
type Handler struct {
	Lifecycle *lifecycle.Service
	Notes     *notes.Recorder
	Slots     *resilient.Registry[models.GroupMembership]
	Errors    *uierrors.Renderer
	Log       *zap.Logger

	// JoinLimit throttles HandleJoin per caller. Nil disables it.
	JoinLimit *ratelimit.Limiter
}

// NewHandler constructs a memberships Handler. Mutations on one
// (group, user) pair share an executor slot built from retry.
func NewHandler(svc *lifecycle.Service, recorder *notes.Recorder, retry resilient.Config, errs *uierrors.Renderer, logger *zap.Logger) *Handler {
	retry.Name = "membership"
	return &Handler{
		Lifecycle: svc,
		Notes:     recorder,
		Slots:     resilient.NewRegistry[models.GroupMembership](retry, logger),
		Errors:    errs,
		Log:       logger,
	}
}

// objectIDParam parses a hex ObjectID URL parameter, writing a 400 on failure.
func (h *Handler) objectIDParam(w http.ResponseWriter, r *http.Request, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		h.Errors.BadRequest(w, r, "Bad "+label+" id.")
		return primitive.NilObjectID, false
	}
	return id, true
}

func slotKey(groupID, userID primitive.ObjectID) string {
	return groupID.Hex() + ":" + userID.Hex()
}
