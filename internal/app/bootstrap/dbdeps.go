// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/storefront/internal/app/system/navcache"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/dalemusser/storefront/internal/app/system/storage"
	"github.com/dalemusser/storefront/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis *redis.Client

	// runtime is shared by pointer so Startup, BuildHandler and Shutdown see
	// the same background services even though hooks receive DBDeps by value.
	runtime *runtimeDeps
}

// runtimeDeps are the long-lived services started after the schema is ready.
type runtimeDeps struct {
	NavCache   *navcache.Cache
	Storage    storage.Storage
	Reconciler *workers.Reconciler
	Limiters   []*ratelimit.Limiter
}
