// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/fellowship/internal/app/features/groups"
	healthfeature "github.com/dalemusser/fellowship/internal/app/features/health"
	membershipsfeature "github.com/dalemusser/fellowship/internal/app/features/memberships"
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed, so deps.Services is fully built.
//
// Fellowship serves a JSON API under /api, plus /health for load
// balancers and /metrics for Prometheus.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svcs := deps.Services
	if svcs == nil || svcs.Authz == nil {
		return nil, errors.New("build handler: services not initialized")
	}

	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	errs := uierrors.NewRenderer(sessionMgr, svcs.Authz, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads the signed-in user ID into context.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	var redisPing healthfeature.RedisPinger
	if svcs.Forwarder != nil {
		redisPing = svcs.Forwarder
	}
	healthHandler := healthfeature.NewHandler(deps.FellowshipMongoClient, redisPing, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Executor and retry metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		groupsHandler := groupsfeature.NewHandler(svcs.Saga, svcs.Lifecycle, svcs.Groups, svcs.Authz, appCfg.RetryConfig("group_status"), errs, logger)
		api.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

		membershipsHandler := membershipsfeature.NewHandler(svcs.Lifecycle, svcs.Notes, appCfg.RetryConfig("membership"), errs, logger)
		membershipsHandler.JoinLimit = svcs.JoinLimit
		api.Mount("/memberships", membershipsfeature.Routes(membershipsHandler, sessionMgr))
	})

	return r, nil
}
