// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	userstore "github.com/dalemusser/fellowship/internal/app/store/users"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the service graph, bootstraps the superadmin account and starts the
// background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Services == nil {
		return errors.New("startup: DBDeps.Services is nil; ConnectDB must allocate it")
	}
	*deps.Services = *buildServices(appCfg, deps, logger)

	if email := strings.TrimSpace(appCfg.SuperAdminEmail); email != "" {
		sctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), logger, "ensure superadmin")
		defer cancel()
		if err := ensureSuperAdmin(sctx, deps, email, logger); err != nil {
			return fmt.Errorf("superadmin bootstrap: %w", err)
		}
	}

	deps.Services.Retention.Start()

	logger.Info("fellowship services ready",
		zap.String("audit_notes", appCfg.AuditNotes),
		zap.Bool("event_forwarding", deps.Services.Forwarder != nil),
		zap.Bool("admin_notify", appCfg.AdminNotify))
	return nil
}

// ensureSuperAdmin makes sure the user with email holds the superadmin role,
// creating the account when it does not exist yet.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.FellowshipMongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		created, err := users.Create(ctx, models.User{
			FullName: "Super Admin",
			Email:    email,
			Roles:    []string{models.UserRoleSuperAdmin},
		})
		if err != nil {
			return err
		}
		logger.Info("created superadmin user", zap.String("user_id", created.ID.Hex()))
		return nil
	case err != nil:
		return err
	}

	if slices.Contains(u.Roles, models.UserRoleSuperAdmin) {
		logger.Debug("superadmin already present", zap.String("user_id", u.ID.Hex()))
		return nil
	}
	if err := users.AddRole(ctx, u.ID, models.UserRoleSuperAdmin); err != nil {
		return err
	}
	logger.Info("promoted existing user to superadmin", zap.String("user_id", u.ID.Hex()))
	return nil
}
