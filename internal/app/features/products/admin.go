package products

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	reviewstore "github.com/dalemusser/storefront/internal/app/store/reviews"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/membership"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/txn"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// errUnknownCollection rejects a product that names a collection that does
// not exist.
var errUnknownCollection = errors.New("one or more collections do not exist")

// ServeAdminList handles GET /api/admin/products. It accepts the same filters
// as the public list.
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	f, sort, err := parseFilter(r)
	if err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, total, err := productstore.New(h.DB).List(ctx, f, sort, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "admin list products failed", err, "")
		return
	}
	jsonutil.OK(w, paging.NewResult(items, total, page))
}

// ServeAdminProduct handles GET /api/admin/products/{id}.
func (h *Handler) ServeAdminProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid product id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := productstore.New(h.DB).GetByID(ctx, id)
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

// decodeProduct reads and validates the body. It writes the 400 itself and
// returns ok=false on failure.
func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (models.Product, bool) {
	var in productInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return models.Product{}, false
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return models.Product{}, false
	}
	p, err := in.toModel()
	if err != nil {
		apierr.Invalid(w, map[string]string{"collections": err.Error()})
		return models.Product{}, false
	}
	return p, true
}

// checkCollections confirms every referenced collection exists.
func checkCollections(ctx context.Context, colls *collectionstore.Store, want []primitive.ObjectID) error {
	if len(want) == 0 {
		return nil
	}
	found, err := colls.ExistingIDs(ctx, want)
	if err != nil {
		return err
	}
	if len(found) != len(want) {
		return errUnknownCollection
	}
	return nil
}

// HandleCreate handles POST /api/admin/products. The product and the
// collection side of its membership are written together.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	products := productstore.New(h.DB)
	colls := collectionstore.New(h.DB)

	if err := checkCollections(ctx, colls, p.Collections); err != nil {
		h.writeStoreError(w, r, "check collections failed", err)
		return
	}

	var created models.Product
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		created, err = products.Create(ctx, p)
		if err != nil {
			return err
		}
		return membership.Sync(ctx, colls, created.ID, nil, created.Collections)
	})
	if err != nil {
		h.writeStoreError(w, r, "create product failed", err)
		return
	}

	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventProductCreated, created.ID, created.Title)
	h.Log.Info("product created",
		zap.String("product_id", created.ID.Hex()),
		zap.String("slug", created.Slug))
	jsonutil.Created(w, created)
}

// HandleUpdate handles PUT /api/admin/products/{id}. The previous collections
// come from the pre-update document so membership is diffed against what was
// actually stored.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid product id")
		return
	}
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p.ID = id

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	products := productstore.New(h.DB)
	colls := collectionstore.New(h.DB)

	if err := checkCollections(ctx, colls, p.Collections); err != nil {
		h.writeStoreError(w, r, "check collections failed", err)
		return
	}

	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := products.Update(ctx, p)
		if err != nil {
			return err
		}
		return membership.Sync(ctx, colls, id, before.Collections, p.Collections)
	})
	if err != nil {
		h.writeStoreError(w, r, "update product failed", err)
		return
	}

	updated, err := products.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload product failed", err, "")
		return
	}
	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventProductUpdated, id, updated.Title)
	jsonutil.OK(w, updated)
}

// HandleDelete handles DELETE /api/admin/products/{id}. The product's reviews,
// wishlist entries and collection memberships go with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	products := productstore.New(h.DB)
	colls := collectionstore.New(h.DB)
	reviews := reviewstore.New(h.DB)
	users := userstore.New(h.DB)

	var (
		removed int64
		gone    models.Product
	)
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if gone, err = products.Delete(ctx, id); err != nil {
			return err
		}
		if err := membership.Detach(ctx, colls, id); err != nil {
			return err
		}
		n, err := reviews.DeleteByProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		removed = n
		return users.PullFromWishlists(ctx, id)
	})
	if err != nil {
		h.writeStoreError(w, r, "delete product failed", err)
		return
	}

	h.Audit.CatalogChanged(ctx, r, auditlog.ActorID(r), audit.EventProductDeleted, id, gone.Title)
	h.Log.Info("product deleted",
		zap.String("product_id", id.Hex()),
		zap.Int64("reviews_removed", removed))
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps store sentinels to 400/404 and anything else to 500.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "product not found")
	case errors.Is(err, productstore.ErrDuplicateSlug):
		apierr.Invalid(w, map[string]string{"slug": err.Error()})
	case errors.Is(err, productstore.ErrTitleRequired):
		apierr.Invalid(w, map[string]string{"title": err.Error()})
	case errors.Is(err, productstore.ErrNegativePrice):
		apierr.Invalid(w, map[string]string{"price": err.Error()})
	case errors.Is(err, errUnknownCollection):
		apierr.Invalid(w, map[string]string{"collections": err.Error()})
	default:
		h.ErrLog.LogServerError(w, r, msg, err, "")
	}
}
