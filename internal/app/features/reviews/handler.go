// internal/app/features/reviews/handler.go
package reviews

import (
	"context"
	"errors"
	"net/http"

	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	reviewstore "github.com/dalemusser/storefront/internal/app/store/reviews"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/htmlsanitize"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/metrics"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/ratings"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/txn"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns review reads and writes. Every write recomputes the product's
// rating from all of its reviews inside the same transaction.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger
}

func NewHandler(db *mongo.Database, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog}
}

type reviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// reviewResult is returned by writes so clients can refresh the product's
// stars without another request.
type reviewResult struct {
	Review        *models.Review `json:"review,omitempty"`
	ProductRating models.Rating  `json:"product_rating"`
}

// ServeProductReviews handles GET /api/products/{productID}/reviews.
func (h *Handler) ServeProductReviews(w http.ResponseWriter, r *http.Request) {
	pid, ok := ids.Param(r, "productID")
	if !ok {
		apierr.BadRequest(w, "invalid product id")
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := productstore.New(h.DB).GetByID(ctx, pid); err != nil {
		h.writeError(w, r, "load product failed", err)
		return
	}
	items, total, err := reviewstore.New(h.DB).ListForProduct(ctx, pid, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list reviews failed", err, "")
		return
	}
	jsonutil.OK(w, paging.NewResult(items, total, page))
}

func decodeReview(w http.ResponseWriter, r *http.Request) (reviewInput, bool) {
	var in reviewInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return in, false
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return in, false
	}
	in.Comment = htmlsanitize.PlainText(in.Comment)
	return in, true
}

// HandleCreate handles POST /api/products/{productID}/reviews.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, name, uid, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return
	}
	pid, ok := ids.Param(r, "productID")
	if !ok {
		apierr.BadRequest(w, "invalid product id")
		return
	}
	in, ok := decodeReview(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	products := productstore.New(h.DB)
	store := reviewstore.New(h.DB)

	if _, err := products.GetByID(ctx, pid); err != nil {
		h.writeError(w, r, "load product failed", err)
		return
	}

	var res reviewResult
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		rv, err := store.Create(ctx, models.Review{
			User:     uid,
			UserName: name,
			Product:  pid,
			Rating:   in.Rating,
			Comment:  in.Comment,
		})
		if err != nil {
			return err
		}
		res.Review = &rv
		res.ProductRating, err = ratings.Recompute(ctx, store, products, pid)
		return err
	})
	if err != nil {
		h.writeError(w, r, "create review failed", err)
		return
	}
	metrics.ReviewsWritten.WithLabelValues("create").Inc()
	h.Log.Info("review created",
		zap.String("review_id", res.Review.ID.Hex()),
		zap.String("product_id", pid.Hex()),
		zap.Float64("average", res.ProductRating.Average))
	jsonutil.Created(w, res)
}

// loadOwned fetches the review named by {id} and checks the caller owns it or
// is an admin. It writes the error response itself.
func (h *Handler) loadOwned(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Review, bool) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid review id")
		return models.Review{}, false
	}
	rv, err := reviewstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		h.writeError(w, r, "load review failed", err)
		return models.Review{}, false
	}
	if !authz.CanModify(r, rv.User) {
		apierr.Unauthorized(w, "you can only change your own reviews")
		return models.Review{}, false
	}
	return rv, true
}

// HandleUpdate handles PUT /api/reviews/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rv, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	in, ok := decodeReview(w, r)
	if !ok {
		return
	}

	store := reviewstore.New(h.DB)
	products := productstore.New(h.DB)

	var res reviewResult
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		updated, err := store.Update(ctx, rv.ID, in.Rating, in.Comment)
		if err != nil {
			return err
		}
		res.Review = &updated
		res.ProductRating, err = ratings.Recompute(ctx, store, products, rv.Product)
		return err
	})
	if err != nil {
		h.writeError(w, r, "update review failed", err)
		return
	}
	metrics.ReviewsWritten.WithLabelValues("update").Inc()
	jsonutil.OK(w, res)
}

// HandleDelete handles DELETE /api/reviews/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rv, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}

	store := reviewstore.New(h.DB)
	products := productstore.New(h.DB)

	var res reviewResult
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if _, err := store.Delete(ctx, rv.ID); err != nil {
			return err
		}
		var err error
		res.ProductRating, err = recomputeIfPresent(ctx, store, products, rv.Product)
		return err
	})
	if err != nil {
		h.writeError(w, r, "delete review failed", err)
		return
	}
	metrics.ReviewsWritten.WithLabelValues("delete").Inc()
	jsonutil.OK(w, res)
}

// recomputeIfPresent tolerates reviews left behind by a product that has
// since been deleted.
func recomputeIfPresent(ctx context.Context, src ratings.ReviewSource, sink ratings.RatingSink, pid primitive.ObjectID) (models.Rating, error) {
	agg, err := ratings.Recompute(ctx, src, sink, pid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return agg, nil
	}
	return agg, err
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		apierr.NotFound(w, "")
	case errors.Is(err, reviewstore.ErrDuplicateReview):
		apierr.BadRequest(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, msg, err, "")
	}
}
