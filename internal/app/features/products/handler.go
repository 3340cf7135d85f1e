// internal/app/features/products/handler.go
package products

import (
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the public catalog and the admin product endpoints.
//
// Admin writes that touch more than one collection (membership, reviews,
// wishlists) run through txn.Run.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
	Audit  *auditlog.Logger
}

// NewHandler constructs a products Handler.
func NewHandler(db *mongo.Database, errLog *apierr.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
		Audit:  audit,
	}
}
