package account

import (
	"context"
	"errors"
	"net/http"

	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServeWishlist handles GET /api/account/wishlist. Products are returned in
// the order they were added; ids of deleted products are skipped.
func (h *Handler) ServeWishlist(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	h.writeWishlist(ctx, w, r, uid)
}

func (h *Handler) writeWishlist(ctx context.Context, w http.ResponseWriter, r *http.Request, uid primitive.ObjectID) {
	list, err := userstore.New(h.DB).Wishlist(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load wishlist failed", err, "")
		return
	}
	products, err := productstore.New(h.DB).InOrder(ctx, list)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load wishlist products failed", err, "")
		return
	}
	jsonutil.OK(w, map[string]any{"items": products})
}

// HandleAdd handles POST /api/account/wishlist/{productID}. Adding a product
// that is already listed is a no-op.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return
	}
	pid, ok := ids.Param(r, "productID")
	if !ok {
		apierr.BadRequest(w, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := productstore.New(h.DB).GetByID(ctx, pid); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apierr.NotFound(w, "product not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "load product failed", err, "")
		return
	}
	if err := userstore.New(h.DB).AddToWishlist(ctx, uid, pid); err != nil {
		h.ErrLog.LogServerError(w, r, "add to wishlist failed", err, "")
		return
	}
	h.writeWishlist(ctx, w, r, uid)
}

// HandleRemove handles DELETE /api/account/wishlist/{productID}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return
	}
	pid, ok := ids.Param(r, "productID")
	if !ok {
		apierr.BadRequest(w, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := userstore.New(h.DB).RemoveFromWishlist(ctx, uid, pid); err != nil {
		h.ErrLog.LogServerError(w, r, "remove from wishlist failed", err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
