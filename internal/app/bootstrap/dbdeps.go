// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every hook after ConnectDB, so the
// services built in Startup hang off the Services pointer allocated here.
type DBDeps struct {
	FellowshipMongoClient   *mongo.Client
	FellowshipMongoDatabase *mongo.Database

	// Redis is nil when event forwarding is disabled.
	Redis *redis.Client

	Services *Services
}
