package products

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// MaxCompare is the most products the compare view accepts.
	MaxCompare = 4

	featuredLimit = 8
	relatedLimit  = 4
)

// ServeList handles GET /api/products.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, sort, err := parseFilter(r)
	if err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if sl := strings.TrimSpace(query.Get(r, "collection")); sl != "" {
		c, err := collectionstore.New(h.DB).GetBySlug(ctx, sl)
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.OK(w, paging.NewResult[models.Product](nil, 0, page))
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load collection for filter failed", err, "")
			return
		}
		f.CollectionID = &c.ID
	}

	items, total, err := productstore.New(h.DB).List(ctx, f, sort, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list products failed", err, "Unable to load products.")
		return
	}
	jsonutil.OK(w, paging.NewResult(items, total, page))
}

// parseFilter reads the catalog query string. Numeric filters that do not
// parse are rejected rather than ignored.
func parseFilter(r *http.Request) (productstore.Filter, string, error) {
	f := productstore.Filter{
		Category: strings.TrimSpace(query.Get(r, "category")),
		Tags:     ids.SplitCSV(query.Get(r, "tags")),
		Size:     strings.TrimSpace(query.Get(r, "size")),
		Color:    strings.TrimSpace(query.Get(r, "color")),
		Query:    strings.TrimSpace(query.Get(r, "q")),
	}
	var err error
	if f.MinPrice, err = optFloat(r, "min_price"); err != nil {
		return f, "", err
	}
	if f.MaxPrice, err = optFloat(r, "max_price"); err != nil {
		return f, "", err
	}
	if f.MinRating, err = optFloat(r, "rating"); err != nil {
		return f, "", err
	}
	if v := query.Get(r, "featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, "", errors.New("featured must be true or false")
		}
		f.Featured = &b
	}
	return f, query.Get(r, "sort"), nil
}

func optFloat(r *http.Request, name string) (*float64, error) {
	v := strings.TrimSpace(query.Get(r, name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 {
		return nil, errors.New(name + " must be a non-negative number")
	}
	return &n, nil
}

// ServeFeatured handles GET /api/products/featured.
func (h *Handler) ServeFeatured(w http.ResponseWriter, r *http.Request) {
	limit := featuredLimit
	if n, err := strconv.Atoi(query.Get(r, "limit")); err == nil && n > 0 && n <= paging.MaxLimit {
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := productstore.New(h.DB).Featured(ctx, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list featured products failed", err, "")
		return
	}
	jsonutil.OK(w, map[string]any{"items": nonNil(items)})
}

// ServeCompare handles GET /api/products/compare?ids=a,b,c. Products are
// returned in the order requested; unknown ids are skipped.
func (h *Handler) ServeCompare(w http.ResponseWriter, r *http.Request) {
	oids, err := ids.Parse(ids.SplitCSV(query.Get(r, "ids")))
	if err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if len(oids) == 0 {
		apierr.BadRequest(w, "ids is required")
		return
	}
	if len(oids) > MaxCompare {
		apierr.BadRequest(w, "at most "+strconv.Itoa(MaxCompare)+" products can be compared")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := productstore.New(h.DB).InOrder(ctx, oids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "compare products failed", err, "")
		return
	}
	jsonutil.OK(w, map[string]any{"items": nonNil(items)})
}

// ServeProduct handles GET /api/products/{slug}.
func (h *Handler) ServeProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := productstore.New(h.DB).GetBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "product not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load product failed", err, "")
		return
	}
	jsonutil.OK(w, p)
}

// ServeRelated handles GET /api/products/{slug}/related: other products in the
// same category.
func (h *Handler) ServeRelated(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	store := productstore.New(h.DB)
	p, err := store.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "product not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load product failed", err, "")
		return
	}
	items, err := store.Related(ctx, p, relatedLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list related products failed", err, "")
		return
	}
	jsonutil.OK(w, map[string]any{"items": nonNil(items)})
}

func nonNil(ps []models.Product) []models.Product {
	if ps == nil {
		return []models.Product{}
	}
	return ps
}
