// internal/app/features/collections/handler.go
package collections

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
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

// Handler serves collections. Membership is never edited here; it follows
// each product's collections list.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
	Audit  *auditlog.Logger
}

func NewHandler(db *mongo.Database, errLog *apierr.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog, Audit: audit}
}

type collectionInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"max=100"`
	Description string `json:"description" validate:"max=5000"`
	Image       string `json:"image" validate:"max=2048"`
}

// collectionDetail is a collection with its products expanded.
type collectionDetail struct {
	models.Collection
	Items []models.Product `json:"items"`
}

// ServeList handles GET /api/collections.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := collectionstore.New(h.DB).List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list collections failed", err, "")
		return
	}
	if items == nil {
		items = []models.Collection{}
	}
	jsonutil.OK(w, map[string]any{"items": items})
}

// ServeCollection handles GET /api/collections/{slug}. Products come back in
// the collection's own order.
func (h *Handler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := collectionstore.New(h.DB).GetBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.NotFound(w, "collection not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load collection failed", err, "")
		return
	}
	items, err := productstore.New(h.DB).InOrder(ctx, c.Products)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load collection products failed", err, "")
		return
	}
	if items == nil {
		items = []models.Product{}
	}
	jsonutil.OK(w, collectionDetail{Collection: c, Items: items})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.Collection, bool) {
	var in collectionInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return models.Collection{}, false
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return models.Collection{}, false
	}
	return models.Collection{
		Title:       strings.TrimSpace(in.Title),
		Slug:        strings.TrimSpace(in.Slug),
		Description: htmlsanitize.Sanitize(in.Description),
		Image:       strings.TrimSpace(in.Image),
	}, true
}

// HandleCreate handles POST /api/admin/collections. New collections are empty.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decode(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := collectionstore.New(h.DB).Create(ctx, c)
	if err != nil {
		h.writeStoreError(w, r, "create collection failed", err)
		return
	}
	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventCollectionCreated, created.ID, created.Title)
	h.Log.Info("collection created", zap.String("collection_id", created.ID.Hex()), zap.String("slug", created.Slug))
	jsonutil.Created(w, created)
}

// HandleUpdate handles PUT /api/admin/collections/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid collection id")
		return
	}
	c, ok := h.decode(w, r)
	if !ok {
		return
	}
	c.ID = id

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	store := collectionstore.New(h.DB)
	if err := store.Update(ctx, c); err != nil {
		h.writeStoreError(w, r, "update collection failed", err)
		return
	}
	updated, err := store.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload collection failed", err, "")
		return
	}
	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventCollectionUpdated, id, updated.Title)
	jsonutil.OK(w, updated)
}

// HandleDelete handles DELETE /api/admin/collections/{id}. The id is pulled
// from every product that listed it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid collection id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	colls := collectionstore.New(h.DB)
	products := productstore.New(h.DB)

	var gone models.Collection
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if gone, err = colls.Delete(ctx, id); err != nil {
			return err
		}
		if err := products.PullCollection(ctx, id); err != nil {
			return fmt.Errorf("pull collection from products: %w", err)
		}
		return nil
	})
	if err != nil {
		h.writeStoreError(w, r, "delete collection failed", err)
		return
	}
	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventCollectionDeleted, id, gone.Title)
	h.Log.Info("collection deleted", zap.String("collection_id", id.Hex()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "collection not found")
	case errors.Is(err, collectionstore.ErrDuplicate), errors.Is(err, collectionstore.ErrTitleRequired):
		apierr.Invalid(w, map[string]string{"title": err.Error()})
	default:
		h.ErrLog.LogServerError(w, r, msg, err, "")
	}
}
