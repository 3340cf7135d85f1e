package orders

import (
	"context"
	"net/http"

	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/orderflow"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// ServeMyOrders handles GET /api/account/orders.
func (h *Handler) ServeMyOrders(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, total, err := orderstore.New(h.DB).ListForUser(ctx, uid, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list my orders failed", err, "")
		return
	}
	jsonutil.OK(w, paging.NewResult(items, total, page))
}

// ServeMyOrder handles GET /api/account/orders/{id}. Another user's order is
// reported as missing.
func (h *Handler) ServeMyOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		apierr.Unauthorized(w, "sign in required")
		return
	}
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := orderstore.New(h.DB).GetForUser(ctx, id, uid)
	if err != nil {
		h.writeStoreError(w, r, "load order failed", err)
		return
	}
	jsonutil.OK(w, o)
}

// ServeAdminList handles GET /api/admin/orders?status=.
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	status := query.Get(r, "status")
	if status != "" && !orderflow.Valid(status) {
		apierr.BadRequest(w, "unknown status "+status)
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, total, err := orderstore.New(h.DB).List(ctx, status, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list orders failed", err, "")
		return
	}
	jsonutil.OK(w, paging.NewResult(items, total, page))
}

// ServeAdminOrder handles GET /api/admin/orders/{id}.
func (h *Handler) ServeAdminOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := orderstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "load order failed", err)
		return
	}
	jsonutil.OK(w, o)
}

type statusInput struct {
	Status string `json:"status" validate:"required,oneof=pending paid shipped delivered cancelled"`
}

// HandleStatus handles PATCH /api/admin/orders/{id}/status. Moving to paid
// goes through markPaid so inventory is decremented exactly once.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := ids.Param(r, "id")
	if !ok {
		apierr.BadRequest(w, "invalid order id")
		return
	}
	var in statusInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := orderstore.New(h.DB)
	cur, err := store.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "load order failed", err)
		return
	}
	var o models.Order
	if in.Status == models.OrderPaid {
		if err = orderflow.Check(cur.Status, models.OrderPaid); err == nil {
			o, _, err = h.markPaid(ctx, r, id, "admin")
		}
	} else {
		o, err = store.UpdateStatus(ctx, id, in.Status)
	}
	if err != nil {
		h.writeStoreError(w, r, "update order status failed", err)
		return
	}
	if o.Status != cur.Status {
		h.Audit.OrderStatusChanged(ctx, r, auditlog.ActorID(r), o.User, id, cur.Status, o.Status)
	}

	h.Log.Info("order status changed",
		zap.String("order_id", id.Hex()),
		zap.String("status", o.Status))
	jsonutil.OK(w, o)
}
