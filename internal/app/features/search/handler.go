// internal/app/features/search/handler.go
package search

import (
	"context"
	"net/http"
	"strings"

	categorystore "github.com/dalemusser/storefront/internal/app/store/categories"
	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	productLimit = 12
	groupLimit   = 5
	maxQueryLen  = 100
)

type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
}

func NewHandler(db *mongo.Database, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog}
}

// Results is the GET /api/search body.
type Results struct {
	Query       string              `json:"query"`
	Products    []models.Product    `json:"products"`
	Categories  []models.Category   `json:"categories"`
	Collections []models.Collection `json:"collections"`
}

// Serve handles GET /api/search?q=. An empty query returns empty groups.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(query.Get(r, "q"))
	if len(q) > maxQueryLen {
		apierr.BadRequest(w, "q is too long")
		return
	}
	res := Results{
		Query:       q,
		Products:    []models.Product{},
		Categories:  []models.Category{},
		Collections: []models.Collection{},
	}
	if q == "" {
		jsonutil.OK(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var err error
	if res.Products, err = productstore.New(h.DB).Search(ctx, q, productLimit); err != nil {
		h.ErrLog.LogServerError(w, r, "search products failed", err, "")
		return
	}
	if res.Categories, err = categorystore.New(h.DB).Search(ctx, q, groupLimit); err != nil {
		h.ErrLog.LogServerError(w, r, "search categories failed", err, "")
		return
	}
	if res.Collections, err = collectionstore.New(h.DB).Search(ctx, q, groupLimit); err != nil {
		h.ErrLog.LogServerError(w, r, "search collections failed", err, "")
		return
	}
	h.Log.Debug("search",
		zap.String("q", q),
		zap.Int("products", len(res.Products)),
		zap.Int("categories", len(res.Categories)),
		zap.Int("collections", len(res.Collections)))
	jsonutil.OK(w, res)
}
