// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/storefront/internal/app/system/navcache"
	"github.com/dalemusser/storefront/internal/app/system/storage"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// the configured deadlines, builds the navigation cache and starts the
// reconciler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.runtime == nil {
		return errors.New("bootstrap: dependencies were not built by ConnectDB")
	}

	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	deps.runtime.NavCache = newNavCache(appCfg, deps, logger)

	st, err := newStorage(ctx, appCfg, logger)
	if err != nil {
		logger.Error("storage init failed", zap.Error(err))
		return err
	}
	deps.runtime.Storage = st

	rec := workers.NewReconciler(deps.MongoDatabase, logger, appCfg.ReconcileSchedule, appCfg.PendingOrderTTL)
	if err := rec.Start(); err != nil {
		logger.Error("reconciler start failed", zap.Error(err))
		return err
	}
	deps.runtime.Reconciler = rec

	return nil
}

// newNavCache picks the Redis backend when a client is available and the
// in-process map otherwise.
func newNavCache(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *navcache.Cache {
	var backend navcache.Backend = navcache.NewMemory()
	if deps.Redis != nil {
		backend = navcache.NewRedis(deps.Redis, "storefront:nav:")
	}
	cache := navcache.New(backend, logger, navcache.WithTTL(appCfg.NavCacheTTL))
	logger.Info("navigation cache ready",
		zap.String("backend", cache.Backend()),
		zap.Duration("ttl", cache.TTL()))
	return cache
}

// newStorage builds the image storage backend named by storage_type.
func newStorage(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (storage.Storage, error) {
	if appCfg.StorageType == "s3" {
		st, err := storage.NewS3(ctx, storage.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Prefix:    appCfg.StorageS3Prefix,
			Endpoint:  appCfg.StorageS3Endpoint,
			PublicURL: appCfg.StorageS3PublicURL,
			AccessKey: appCfg.StorageS3AccessKey,
			SecretKey: appCfg.StorageS3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("image storage ready", zap.String("type", "s3"), zap.String("bucket", appCfg.StorageS3Bucket))
		return st, nil
	}

	st, err := storage.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	if err != nil {
		return nil, err
	}
	logger.Info("image storage ready", zap.String("type", "local"), zap.String("path", appCfg.StorageLocalPath))
	return st, nil
}
