// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/fellowship/internal/app/services/creation"
	"github.com/dalemusser/fellowship/internal/app/services/lifecycle"
	servicestore "github.com/dalemusser/fellowship/internal/app/store/churchservices"
	groupstore "github.com/dalemusser/fellowship/internal/app/store/groups"
	membershipstore "github.com/dalemusser/fellowship/internal/app/store/memberships"
	notestore "github.com/dalemusser/fellowship/internal/app/store/notes"
	outboxstore "github.com/dalemusser/fellowship/internal/app/store/notifications"
	userstore "github.com/dalemusser/fellowship/internal/app/store/users"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/notes"
	"github.com/dalemusser/fellowship/internal/app/system/notify"
	"github.com/dalemusser/fellowship/internal/app/system/ratelimit"
	"github.com/dalemusser/fellowship/internal/app/system/workers"
	"go.uber.org/zap"
)

// Services is the application graph built once in Startup and shared by
// BuildHandler and Shutdown.
type Services struct {
	Users  *userstore.Store
	Groups *groupstore.Store

	Authz     *authz.Engine
	Bus       *events.Bus
	Lifecycle *lifecycle.Service
	Saga      *creation.Saga
	Notes     *notes.Recorder

	// Forwarder is nil when event forwarding is disabled.
	Forwarder *events.RedisForwarder
	Retention *workers.OutboxRetention

	// JoinLimit throttles join requests per user.
	JoinLimit *ratelimit.Limiter
}

// buildServices wires stores, the authorization engine, the event bus and
// its subscribers, and the services on top of them.
func buildServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *Services {
	db := deps.FellowshipMongoDatabase

	users := userstore.New(db)
	groups := groupstore.New(db)
	memberships := membershipstore.New(db)
	outbox := outboxstore.New(db)

	engine := authz.NewEngine(users, groups, memberships, logger.Named("authz"))
	bus := events.NewBus(logger.Named("events"))

	recorder := notes.NewRecorder(notestore.New(db), memberships, engine, logger.Named("notes"), appCfg.AuditNotes)
	bus.Subscribe("audit_notes", recorder)

	dispatcher := notify.NewDispatcher(notify.NewOutbox(outbox), users, memberships, logger.Named("notify"), appCfg.AdminNotify)
	bus.Subscribe("notifications", dispatcher)

	svcs := &Services{
		Users:     users,
		Groups:    groups,
		Authz:     engine,
		Bus:       bus,
		Lifecycle: lifecycle.New(groups, memberships, engine, bus, appCfg.RetryConfig("batch_approve_groups"), logger.Named("lifecycle")),
		Saga:      creation.New(servicestore.New(db), groups, memberships, engine, bus, logger.Named("creation")),
		Notes:     recorder,
		Retention: workers.NewOutboxRetention(outbox, logger.Named("workers"), appCfg.OutboxPruneInterval, appCfg.OutboxRetention),
		JoinLimit: ratelimit.New(appCfg.JoinRateLimit, appCfg.JoinRateWindow),
	}

	if deps.Redis != nil {
		svcs.Forwarder = events.NewRedisForwarder(deps.Redis, appCfg.RedisChannel, logger.Named("events"))
		bus.Subscribe("redis_forwarder", svcs.Forwarder)
	}

	return svcs
}
