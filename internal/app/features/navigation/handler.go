// Package navigation serves the category and collection menus through the
// navigation cache.
package navigation

import (
	"context"
	"net/http"
	"time"

	categorystore "github.com/dalemusser/storefront/internal/app/store/categories"
	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/navcache"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Cache keys. Categories and collections keep separate fetch timestamps.
const (
	KeyCategories  = "nav:categories"
	KeyCollections = "nav:collections"
)

// Link is one menu entry.
type Link struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
}

// Menu is the GET /api/navigation body.
type Menu struct {
	Categories  []Link `json:"categories"`
	Collections []Link `json:"collections"`
	TTLSeconds  int    `json:"ttl_seconds"`
}

type Handler struct {
	DB     *mongo.Database
	Cache  *navcache.Cache
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
}

func NewHandler(db *mongo.Database, cache *navcache.Cache, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Cache: cache, Log: logger, ErrLog: errLog}
}

// ServeMenu handles GET /api/navigation. Each list is read from Mongo only
// when its cached copy is missing or older than the cache TTL.
func (h *Handler) ServeMenu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	menu, err := h.menu(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load navigation failed", err, "")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	jsonutil.OK(w, menu)
}

// HandleRefresh handles POST /api/admin/navigation/refresh. It drops both
// cached lists and returns the freshly loaded menu.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	for _, key := range []string{KeyCategories, KeyCollections} {
		if err := h.Cache.Invalidate(ctx, key); err != nil {
			h.ErrLog.LogServerError(w, r, "invalidate navigation cache failed", err, "")
			return
		}
	}
	menu, err := h.menu(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload navigation failed", err, "")
		return
	}
	h.Log.Info("navigation cache refreshed",
		zap.Int("categories", len(menu.Categories)),
		zap.Int("collections", len(menu.Collections)))
	jsonutil.OK(w, menu)
}

func (h *Handler) menu(ctx context.Context) (Menu, error) {
	cats, err := navcache.Fetch(ctx, h.Cache, KeyCategories, h.loadCategories)
	if err != nil {
		return Menu{}, err
	}
	colls, err := navcache.Fetch(ctx, h.Cache, KeyCollections, h.loadCollections)
	if err != nil {
		return Menu{}, err
	}
	return Menu{
		Categories:  cats,
		Collections: colls,
		TTLSeconds:  int(h.Cache.TTL() / time.Second),
	}, nil
}

func (h *Handler) loadCategories(ctx context.Context) ([]Link, error) {
	cs, err := categorystore.New(h.DB).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Link, 0, len(cs))
	for _, c := range cs {
		out = append(out, Link{ID: c.ID.Hex(), Title: c.Title, Slug: c.Slug, Image: c.Image})
	}
	return out, nil
}

func (h *Handler) loadCollections(ctx context.Context) ([]Link, error) {
	cs, err := collectionstore.New(h.DB).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Link, 0, len(cs))
	for _, c := range cs {
		out = append(out, Link{ID: c.ID.Hex(), Title: c.Title, Slug: c.Slug, Image: c.Image})
	}
	return out, nil
}
