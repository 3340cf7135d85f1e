package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/storefront/internal/app/features/cart"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/metrics"
	"github.com/dalemusser/storefront/internal/app/system/payments"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/validate"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type checkoutRequest struct {
	Items           []cart.ItemInput       `json:"items" validate:"min=1,max=100,dive"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"omitempty,oneof=card"`
}

type checkoutResponse struct {
	Order       models.Order `json:"order"`
	CheckoutURL string       `json:"checkout_url,omitempty"`
}

// HandleCheckout handles POST /api/orders. Items are priced from the current
// product documents; client-sent prices are never trusted.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	uid, idOK := authz.UserID(r)
	if !ok || !idOK {
		apierr.Unauthorized(w, "sign in required")
		return
	}

	var in checkoutRequest
	if err := jsonutil.Decode(w, r, &in); err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}
	if fields := validate.Struct(in); fields != nil {
		apierr.Invalid(w, fields)
		return
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = "card"
	}
	in.ShippingAddress.Country = strings.ToUpper(in.ShippingAddress.Country)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	lines, err := cart.Resolve(ctx, h.DB, in.Items)
	if err != nil {
		var unknown *cart.UnknownProductError
		if errors.As(err, &unknown) {
			apierr.BadRequest(w, unknown.Error())
			return
		}
		h.ErrLog.LogServerError(w, r, "resolve checkout items failed", err, "")
		return
	}
	for _, l := range lines {
		if !l.Product.InStock(l.Quantity) {
			apierr.BadRequest(w, fmt.Sprintf("only %d of %q left in stock", l.Product.Inventory, l.Product.Title))
			return
		}
	}

	totals := h.Pricing.OrderTotals(cart.PricingLines(lines))
	items := make([]models.OrderItem, len(lines))
	for i, l := range lines {
		items[i] = models.OrderItem{
			Product:  l.Product.ID,
			Title:    l.Product.Title,
			Quantity: l.Quantity,
			Price:    pricing.Float(pricing.Cents(l.Product.Price)),
		}
	}

	store := orderstore.New(h.DB)
	order, err := store.Create(ctx, models.Order{
		User:            uid,
		Items:           items,
		Subtotal:        pricing.Float(totals.Subtotal),
		Shipping:        pricing.Float(totals.Shipping),
		Tax:             pricing.Float(totals.Tax),
		Total:           pricing.Float(totals.Total),
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
	})
	if err != nil {
		h.writeStoreError(w, r, "create order failed", err)
		return
	}
	metrics.OrdersCreated.Inc()
	h.Audit.OrderPlaced(ctx, r, uid, order.ID, money(order.Total))

	sess, err := h.Gateway.CreateSession(ctx, h.sessionRequest(order, user.Email, totals))
	switch {
	case errors.Is(err, payments.ErrDisabled):
		// No provider: the order waits for an admin to mark it paid.
		h.Log.Info("order created without payment session",
			zap.String("order_id", order.ID.Hex()),
			zap.Float64("total", order.Total))
		jsonutil.Created(w, checkoutResponse{Order: order})
		return
	case err != nil:
		if _, cerr := store.UpdateStatus(ctx, order.ID, models.OrderCancelled); cerr != nil {
			h.Log.Warn("cancel order after payment failure", zap.String("order_id", order.ID.Hex()), zap.Error(cerr))
		}
		h.ErrLog.LogServerError(w, r, "create payment session failed", err, "payment provider unavailable")
		return
	}

	if err := store.SetPaymentSession(ctx, order.ID, sess.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "store payment session failed", err, "")
		return
	}
	order.PaymentSessionID = sess.ID

	h.Log.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", uid.Hex()),
		zap.String("gateway", h.Gateway.Name()),
		zap.Float64("total", order.Total))
	jsonutil.Created(w, checkoutResponse{Order: order, CheckoutURL: sess.URL})
}

func (h *Handler) sessionRequest(o models.Order, email string, totals pricing.Totals) payments.SessionRequest {
	lines := make([]payments.LineItem, 0, len(o.Items)+2)
	for _, it := range o.Items {
		lines = append(lines, payments.LineItem{
			Name:      it.Title,
			UnitPrice: pricing.Cents(it.Price),
			Quantity:  it.Quantity,
		})
	}
	if totals.Shipping.IsPositive() {
		lines = append(lines, payments.LineItem{Name: "Shipping", UnitPrice: totals.Shipping, Quantity: 1})
	}
	if totals.Tax.IsPositive() {
		lines = append(lines, payments.LineItem{Name: "Tax", UnitPrice: totals.Tax, Quantity: 1})
	}
	base := strings.TrimRight(h.Settings.BaseURL, "/")
	return payments.SessionRequest{
		OrderID:       o.ID.Hex(),
		CustomerEmail: email,
		Currency:      h.Settings.Currency,
		Lines:         lines,
		SuccessURL:    base + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     base + "/checkout/cancel?order=" + url.QueryEscape(o.ID.Hex()),
	}
}

type verifyResponse struct {
	Order models.Order `json:"order"`
	Paid  bool         `json:"paid"`
}

// HandleVerify handles GET /api/orders/verify?session_id=. The customer lands
// here from the gateway's success page; the gateway is asked directly rather
// than trusting the redirect.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	sessionID := query.Get(r, "session_id")
	if sessionID == "" {
		apierr.BadRequest(w, "session_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	order, err := orderstore.New(h.DB).GetByPaymentSession(ctx, sessionID)
	if err != nil {
		h.writeStoreError(w, r, "load order by session failed", err)
		return
	}
	if !authz.CanModify(r, order.User) {
		apierr.NotFound(w, "order not found")
		return
	}

	if order.Status == models.OrderPending {
		sess, err := h.Gateway.RetrieveSession(ctx, sessionID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "retrieve payment session failed", err, "payment provider unavailable")
			return
		}
		if sess.Paid {
			order, _, err = h.markPaid(ctx, r, order.ID, "verify")
			if err != nil {
				h.writeStoreError(w, r, "mark order paid failed", err)
				return
			}
		}
	}
	jsonutil.OK(w, verifyResponse{Order: order, Paid: order.PaidAt != nil})
}
