// internal/app/features/orders/handler.go
package orders

import (
	"errors"
	"net/http"
	"time"

	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/orderflow"
	"github.com/dalemusser/storefront/internal/app/system/payments"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Settings are the site-wide values checkout needs.
type Settings struct {
	BaseURL  string // used to build the gateway's success and cancel URLs
	Currency string // ISO 4217, lower case
	SiteName string // shown in the receipt email
}

// Handler serves checkout, payment confirmation, and order views for both
// customers and admins.
type Handler struct {
	DB       *mongo.Database
	Gateway  payments.Gateway
	Pricing  pricing.Config
	Mail     mailer.Sender // nil disables receipts
	Settings Settings

	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
	Audit  *auditlog.Logger

	now func() time.Time
}

func NewHandler(db *mongo.Database, gw payments.Gateway, cfg pricing.Config, mail mailer.Sender, s Settings, errLog *apierr.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if gw == nil {
		gw = payments.Disabled{}
	}
	if s.Currency == "" {
		s.Currency = "usd"
	}
	if s.SiteName == "" {
		s.SiteName = "Storefront"
	}
	return &Handler{
		DB:       db,
		Gateway:  gw,
		Pricing:  cfg,
		Mail:     mail,
		Settings: s,
		Log:      logger,
		ErrLog:   errLog,
		Audit:    audit,
		now:      time.Now,
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "order not found")
	case errors.Is(err, orderflow.ErrInvalidTransition),
		errors.Is(err, orderstore.ErrStatusChanged),
		errors.Is(err, orderstore.ErrNoItems):
		apierr.BadRequest(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, msg, err, "")
	}
}
