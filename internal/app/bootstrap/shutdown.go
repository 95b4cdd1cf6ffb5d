// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background workers and cleanly tears down Redis and
// MongoDB connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Services != nil && deps.Services.Retention != nil {
		deps.Services.Retention.Stop()
	}
	if deps.Services != nil && deps.Services.JoinLimit != nil {
		deps.Services.JoinLimit.Stop()
	}

	if deps.Redis != nil {
		logger.Info("closing Redis client")
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("Redis close failed", zap.Error(err))
		}
	}

	if deps.FellowshipMongoClient != nil {
		logger.Info("disconnecting Fellowship MongoDB client")
		if err := deps.FellowshipMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
