// internal/app/features/dashboard/handler.go
package dashboard

import (
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// LowStockThreshold is the inventory at or below which a product is flagged.
	LowStockThreshold = 5
	lowStockLimit     = 10
	recentOrdersLimit = 5
)

type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
}

func NewHandler(db *mongo.Database, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
	}
}
