package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/metrics"
	"github.com/dalemusser/storefront/internal/app/system/payments"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/app/system/txn"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// maxWebhookBytes caps webhook payloads.
const maxWebhookBytes = 64 << 10

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Stripe-Signature"

// markPaid moves a pending order to paid and decrements inventory in one
// transaction. Only the caller that wins the pending→paid update decrements,
// so repeated confirmations (verify + webhook, or webhook retries) are no-ops.
func (h *Handler) markPaid(ctx context.Context, r *http.Request, id primitive.ObjectID, source string) (models.Order, bool, error) {
	var (
		order        models.Order
		transitioned bool
	)
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		order, transitioned, err = orderstore.New(h.DB).MarkPaid(ctx, id, h.now())
		if err != nil || !transitioned {
			return err
		}
		return productstore.New(h.DB).DecrementStock(ctx, order.Items)
	})
	if err != nil {
		return models.Order{}, false, err
	}

	if !transitioned {
		if order.Status == models.OrderCancelled {
			h.Log.Warn("payment confirmed for cancelled order",
				zap.String("order_id", id.Hex()),
				zap.String("source", source))
		}
		return order, false, nil
	}

	metrics.OrdersPaid.WithLabelValues(source).Inc()
	h.Audit.OrderPaid(ctx, r, order.User, id, source)
	h.Log.Info("order paid",
		zap.String("order_id", id.Hex()),
		zap.String("source", source),
		zap.Float64("total", order.Total))
	h.sendReceipt(ctx, order)
	return order, true, nil
}

// sendReceipt is best effort; a mail failure never fails the payment.
func (h *Handler) sendReceipt(ctx context.Context, o models.Order) {
	if h.Mail == nil {
		return
	}
	u, err := userstore.New(h.DB).GetByID(ctx, o.User)
	if err != nil {
		h.Log.Warn("receipt: load user", zap.String("order_id", o.ID.Hex()), zap.Error(err))
		return
	}
	data := mailer.OrderEmailData{
		SiteName: h.Settings.SiteName,
		Name:     u.Name,
		OrderID:  o.ID.Hex(),
		Subtotal: money(o.Subtotal),
		Shipping: money(o.Shipping),
		Tax:      money(o.Tax),
		Total:    money(o.Total),
	}
	for _, it := range o.Items {
		data.Lines = append(data.Lines, mailer.OrderEmailLine{
			Title:    it.Title,
			Quantity: it.Quantity,
			Price:    money(it.Price),
		})
	}
	if err := h.Mail.Send(ctx, mailer.BuildOrderPaidEmail(u.Email, data)); err != nil {
		h.Log.Warn("receipt: send", zap.String("order_id", o.ID.Hex()), zap.Error(err))
	}
}

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }

// HandleWebhook handles POST /api/webhooks/payment. A bad signature is a 400;
// any internal failure is a 500 so the provider retries.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		apierr.BadRequest(w, "unreadable payload")
		return
	}

	ev, err := h.Gateway.ParseWebhook(payload, r.Header.Get(SignatureHeader))
	if err != nil {
		h.Log.Warn("webhook rejected", zap.String("gateway", h.Gateway.Name()), zap.Error(err))
		if errors.Is(err, payments.ErrBadSignature) {
			apierr.BadRequest(w, "invalid signature")
			return
		}
		apierr.BadRequest(w, "invalid webhook")
		return
	}

	ack := map[string]any{"received": true}
	if ev.Type != payments.EventCheckoutCompleted || !ev.Session.Paid {
		jsonutil.OK(w, ack)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	order, err := h.orderForSession(ctx, ev.Session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Retrying cannot help an order we never created.
		h.Log.Warn("webhook for unknown order",
			zap.String("event_id", ev.ID),
			zap.String("session_id", ev.Session.ID))
		jsonutil.OK(w, ack)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "webhook: load order failed", err, "")
		return
	}
	if _, _, err := h.markPaid(ctx, r, order.ID, "webhook"); err != nil {
		h.ErrLog.LogServerError(w, r, "webhook: mark order paid failed", err, "")
		return
	}
	jsonutil.OK(w, ack)
}

// orderForSession prefers the order id the session carries and falls back to
// the stored session id.
func (h *Handler) orderForSession(ctx context.Context, s payments.Session) (models.Order, error) {
	store := orderstore.New(h.DB)
	if oid, err := primitive.ObjectIDFromHex(s.OrderID); err == nil {
		o, err := store.GetByID(ctx, oid)
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return o, err
		}
	}
	return store.GetByPaymentSession(ctx, s.ID)
}
