// internal/app/features/groups/handler.go
package groups

import (
	"context"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/services/creation"
	"github.com/dalemusser/fellowship/internal/app/services/lifecycle"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/resilient"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupReader is the read side of the groups collection used by the list
// and view endpoints.
type GroupReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	ListByChurch(ctx context.Context, churchID primitive.ObjectID, status string) ([]models.Group, error)
}

// Handler is the shared dependency container for the groups API.
// Status changes run through one executor slot per group, so a newer
// request for the same group supersedes an older one still in flight.
type Handler struct {
	Saga      *creation.Saga
	Lifecycle *lifecycle.Service
	Groups    GroupReader
	Authz     *authz.Engine
	Slots     *resilient.Registry[models.Group]
	Errors    *uierrors.Renderer
	Log       *zap.Logger
}

// NewHandler constructs a groups Handler. It is called from the bootstrap
// BuildHandler function once the services are built.
func NewHandler(saga *creation.Saga, svc *lifecycle.Service, groups GroupReader, engine *authz.Engine, retry resilient.Config, errs *uierrors.Renderer, logger *zap.Logger) *Handler {
	retry.Name = "group_status"
	return &Handler{
		Saga:      saga,
		Lifecycle: svc,
		Groups:    groups,
		Authz:     engine,
		Slots:     resilient.NewRegistry[models.Group](retry, logger),
		Errors:    errs,
		Log:       logger,
	}
}
