// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/indexes"
	"github.com/dalemusser/fellowship/internal/app/system/timeouts"
	"github.com/dalemusser/fellowship/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client (and the Redis client when event
// forwarding is configured) and verifies both with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "mongo connect")
	defer cancel()

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	deps := DBDeps{
		FellowshipMongoClient:   client,
		FellowshipMongoDatabase: client.Database(appCfg.MongoDatabase),
		Services:                &Services{},
	}

	if appCfg.RedisAddr != "" {
		rdb, err := events.NewRedisClient(ctx, appCfg.RedisAddr)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, err
		}
		deps.Redis = rdb
		logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
	}

	return deps, nil
}

// EnsureSchema installs collection validators and indexes. Both steps are
// idempotent, so this runs on every start.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	sctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "ensure schema")
	defer cancel()

	if err := validators.EnsureAll(sctx, deps.FellowshipMongoDatabase); err != nil {
		logger.Error("collection validators failed", zap.Error(err))
		return fmt.Errorf("validators: %w", err)
	}
	if err := indexes.EnsureAll(sctx, deps.FellowshipMongoDatabase); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return fmt.Errorf("indexes: %w", err)
	}
	logger.Info("schema ensured")
	return nil
}
