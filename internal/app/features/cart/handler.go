// internal/app/features/cart/handler.go
package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler prices carts. The cart itself lives on the client; this endpoint
// only quotes it against current prices.
type Handler struct {
	DB      *mongo.Database
	Pricing pricing.Config
	Log     *zap.Logger
	ErrLog  *apierr.ErrorLogger
}

func NewHandler(db *mongo.Database, cfg pricing.Config, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Pricing: cfg, Log: logger, ErrLog: errLog}
}

type quoteRequest struct {
	Items     []ItemInput `json:"items" validate:"required,min=1,max=100,dive"`
	PromoCode string      `json:"promo_code" validate:"max=40"`
}

type quoteLine struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Image     string  `json:"image,omitempty"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
	InStock   bool    `json:"in_stock"`
}

// QuoteResponse is the POST /api/cart/quote body.
type QuoteResponse struct {
	Lines        []quoteLine `json:"lines"`
	Subtotal     float64     `json:"subtotal"`
	Shipping     float64     `json:"shipping"`
	Discount     float64     `json:"discount"`
	Tax          float64     `json:"tax"`
	Total        float64     `json:"total"`
	PromoCode    string      `json:"promo_code,omitempty"`
	PromoApplied bool        `json:"promo_applied"`
}

// HandleQuote handles POST /api/cart/quote.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(req); fields != nil {
		apierr.Invalid(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	lines, err := Resolve(ctx, h.DB, req.Items)
	var unknown *UnknownProductError
	if errors.As(err, &unknown) {
		apierr.BadRequest(w, unknown.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve cart items failed", err, "")
		return
	}

	q := h.Pricing.Quote(PricingLines(lines), req.PromoCode)
	resp := QuoteResponse{
		Lines:        make([]quoteLine, 0, len(lines)),
		Subtotal:     pricing.Float(q.Subtotal),
		Shipping:     pricing.Float(q.Shipping),
		Discount:     pricing.Float(q.Discount),
		Tax:          pricing.Float(q.Tax),
		Total:        pricing.Float(q.Total),
		PromoCode:    q.PromoCode,
		PromoApplied: q.PromoApplied,
	}
	for _, l := range lines {
		unit := pricing.Cents(l.Product.Price)
		ql := quoteLine{
			ProductID: l.Product.ID.Hex(),
			Title:     l.Product.Title,
			Slug:      l.Product.Slug,
			UnitPrice: pricing.Float(unit),
			Quantity:  l.Quantity,
			LineTotal: pricing.Float(unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)),
			InStock:   l.Product.InStock(l.Quantity),
		}
		if len(l.Product.Images) > 0 {
			ql.Image = l.Product.Images[0]
		}
		resp.Lines = append(resp.Lines, ql)
	}
	if req.PromoCode != "" && !q.PromoApplied {
		h.Log.Debug("unknown promo code", zap.String("code", req.PromoCode))
	}
	jsonutil.OK(w, resp)
}
