// internal/app/features/categories/handler.go
package categories

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	categorystore "github.com/dalemusser/storefront/internal/app/store/categories"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/htmlsanitize"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/txn"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
	Audit  *auditlog.Logger
}

func NewHandler(db *mongo.Database, errLog *apierr.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog, Audit: audit}
}

type categoryInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"max=100"`
	Description string `json:"description" validate:"max=5000"`
	Image       string `json:"image" validate:"max=2048"`
}

func (in categoryInput) toModel() models.Category {
	return models.Category{
		Title:       strings.TrimSpace(in.Title),
		Slug:        strings.TrimSpace(in.Slug),
		Description: htmlsanitize.Sanitize(in.Description),
		Image:       strings.TrimSpace(in.Image),
	}
}

// categoryDetail is a category with the number of products filed under it.
type categoryDetail struct {
	models.Category
	ProductCount int64 `json:"product_count"`
}

// ServeList handles GET /api/categories.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := categorystore.New(h.DB).List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list categories failed", err, "")
		return
	}
	if items == nil {
		items = []models.Category{}
	}
	jsonutil.OK(w, map[string]any{"items": items})
}

// ServeCategory handles GET /api/categories/{slug}.
func (h *Handler) ServeCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := categorystore.New(h.DB).GetBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "category not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load category failed", err, "")
		return
	}
	n, err := productstore.New(h.DB).CountInCategory(ctx, c.Title)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count category products failed", err, "")
		return
	}
	jsonutil.OK(w, categoryDetail{Category: c, ProductCount: n})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.Category, bool) {
	var in categoryInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return models.Category{}, false
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return models.Category{}, false
	}
	return in.toModel(), true
}

// HandleCreate handles POST /api/admin/categories.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decode(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := categorystore.New(h.DB).Create(ctx, c)
	if err != nil {
		h.writeStoreError(w, r, "create category failed", err)
		return
	}
	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventCategoryCreated, created.ID, created.Title)
	h.Log.Info("category created", zap.String("category_id", created.ID.Hex()), zap.String("slug", created.Slug))
	jsonutil.Created(w, created)
}

// HandleUpdate handles PUT /api/admin/categories/{id}. Products refer to a
// category by title, so a rename is carried onto them in the same
// transaction.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid category id")
		return
	}
	c, ok := h.decode(w, r)
	if !ok {
		return
	}
	c.ID = id

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cats := categorystore.New(h.DB)
	products := productstore.New(h.DB)

	var moved int64
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := cats.Update(ctx, c)
		if err != nil {
			return err
		}
		moved, err = products.RenameCategory(ctx, before.Title, c.Title)
		if err != nil {
			return fmt.Errorf("rename category on products: %w", err)
		}
		return nil
	})
	if err != nil {
		h.writeStoreError(w, r, "update category failed", err)
		return
	}
	if moved > 0 {
		h.Log.Info("category renamed on products",
			zap.String("category_id", id.Hex()),
			zap.Int64("products", moved))
	}

	updated, err := cats.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload category failed", err, "")
		return
	}
	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventCategoryUpdated, id, updated.Title)
	jsonutil.OK(w, updated)
}

// HandleDelete handles DELETE /api/admin/categories/{id}. A category that
// still has products is refused; move or delete them first.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid category id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cats := categorystore.New(h.DB)
	c, err := cats.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "load category failed", err)
		return
	}
	n, err := productstore.New(h.DB).CountInCategory(ctx, c.Title)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count category products failed", err, "")
		return
	}
	if n > 0 {
		apierr.BadRequest(w, fmt.Sprintf("category is used by %d products", n))
		return
	}
	if _, err := cats.Delete(ctx, id); err != nil {
		h.writeStoreError(w, r, "delete category failed", err)
		return
	}
	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventCategoryDeleted, id, c.Title)
	h.Log.Info("category deleted", zap.String("category_id", id.Hex()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "category not found")
	case errors.Is(err, categorystore.ErrDuplicate):
		apierr.Invalid(w, map[string]string{"title": err.Error()})
	case errors.Is(err, categorystore.ErrTitleRequired):
		apierr.Invalid(w, map[string]string{"title": err.Error()})
	default:
		h.ErrLog.LogServerError(w, r, msg, err, "")
	}
}
