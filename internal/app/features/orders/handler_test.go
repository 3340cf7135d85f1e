package orders_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/storefront/internal/app/features/orders"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/payments"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeGateway issues one session per order and reports a session paid after
// markPaid is called for it.
type fakeGateway struct {
	mu       sync.Mutex
	requests []payments.SessionRequest
	paid     map[string]bool
	orderOf  map[string]string
	event    *payments.Event
	failNext error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{paid: map[string]bool{}, orderOf: map[string]string{}}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failNext; err != nil {
		g.failNext = nil
		return nil, err
	}
	g.requests = append(g.requests, req)
	id := "cs_test_" + req.OrderID
	g.orderOf[id] = req.OrderID
	return &payments.Session{ID: id, URL: "https://pay.example/" + id, OrderID: req.OrderID}, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, id string) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &payments.Session{ID: id, OrderID: g.orderOf[id], Paid: g.paid[id]}, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, header string) (*payments.Event, error) {
	if header != "valid" {
		return nil, payments.ErrBadSignature
	}
	return g.event, nil
}

func (g *fakeGateway) markPaid(id string) {
	g.mu.Lock()
	g.paid[id] = true
	g.mu.Unlock()
}

type captureMail struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (c *captureMail) Send(_ context.Context, e mailer.Email) error {
	c.mu.Lock()
	c.sent = append(c.sent, e)
	c.mu.Unlock()
	return nil
}

type checkoutResult struct {
	Order       models.Order `json:"order"`
	CheckoutURL string       `json:"checkout_url"`
}

func newHandler(db *mongo.Database, gw payments.Gateway, mail mailer.Sender) *orders.Handler {
	return orders.NewHandler(db, gw, pricing.DefaultConfig(), mail,
		orders.Settings{BaseURL: "https://shop.example"},
		apierr.NewErrorLogger(zap.NewNop()),
		auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{Order: auditlog.DB}),
		zap.NewNop())
}

// auditCount counts the order events of eventType recorded for orderID.
func auditCount(t *testing.T, db *mongo.Database, orderID primitive.ObjectID, eventType string) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, n, err := audit.New(db).Query(ctx, audit.QueryFilter{SubjectID: &orderID, EventType: eventType}, paging.New(1, 1))
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	return n
}

func checkoutBody(items ...map[string]any) map[string]any {
	return map[string]any{
		"items": items,
		"shipping_address": map[string]any{
			"full_name":   "Ann Buyer",
			"line1":       "1 Main St",
			"city":        "Springfield",
			"postal_code": "12345",
			"country":     "us",
		},
	}
}

func item(p models.Product, qty int) map[string]any {
	return map[string]any{"product_id": p.ID.Hex(), "quantity": qty}
}

func checkout(h *orders.Handler, as models.User, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest("POST", "/api/orders", body)
	req = testutil.WithUser(req, testutil.AsTestUser(as))
	rec := httptest.NewRecorder()
	h.HandleCheckout(rec, req)
	return rec
}

func inventory(t *testing.T, db *mongo.Database, id primitive.ObjectID) int {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p, err := productstore.New(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Inventory
}

func TestHandleCheckout_CreatesPendingOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Trail Jacket", "Coats", 120, 3)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	gw := newFakeGateway()
	h := newHandler(db, gw, nil)

	rec := checkout(h, ann, checkoutBody(item(p, 1)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var res checkoutResult
	testutil.DecodeJSON(t, rec, &res)

	o := res.Order
	if o.Status != models.OrderPending {
		t.Errorf("status: got %q, want pending", o.Status)
	}
	if o.Subtotal != 120 || o.Shipping != 0 || o.Tax != 9.6 || o.Total != 129.6 {
		t.Errorf("totals: got %v/%v/%v/%v, want 120/0/9.6/129.6", o.Subtotal, o.Shipping, o.Tax, o.Total)
	}
	if o.ShippingAddress.Country != "US" {
		t.Errorf("country: got %q, want US", o.ShippingAddress.Country)
	}
	if !strings.HasPrefix(res.CheckoutURL, "https://pay.example/") {
		t.Errorf("checkout_url: got %q", res.CheckoutURL)
	}

	stored, err := orderstore.New(db).GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.PaymentSessionID == "" || stored.PaymentSessionID != o.PaymentSessionID {
		t.Errorf("payment session: stored %q, returned %q", stored.PaymentSessionID, o.PaymentSessionID)
	}
	if got := inventory(t, db, p.ID); got != 3 {
		t.Errorf("inventory before payment: got %d, want 3", got)
	}

	req := gw.requests[0]
	if req.OrderID != o.ID.Hex() || req.CustomerEmail != "ann@example.com" {
		t.Errorf("session request: %+v", req)
	}
	if !strings.HasPrefix(req.SuccessURL, "https://shop.example/checkout/success") {
		t.Errorf("success url: %q", req.SuccessURL)
	}
}

func TestHandleCheckout_ChargeMatchesOrderTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Written straight to the collection, so the price keeps its sub-cent digit.
	p := fx.CreateProduct(ctx, "Sticker", "Stationery", 0.125, 10)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	gw := newFakeGateway()
	h := newHandler(db, gw, nil)

	rec := checkout(h, ann, checkoutBody(item(p, 2)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var res checkoutResult
	testutil.DecodeJSON(t, rec, &res)

	if got := res.Order.Items[0].Price; got != 0.13 {
		t.Errorf("item price: got %v, want 0.13", got)
	}
	if res.Order.Total != 10.28 {
		t.Errorf("total: got %v, want 10.28 (0.26 + 10 shipping + 0.02 tax)", res.Order.Total)
	}

	var charged int64
	for _, l := range gw.requests[0].Lines {
		charged += payments.MinorUnits(l.UnitPrice) * int64(l.Quantity)
	}
	if want := payments.MinorUnits(decimal.NewFromFloat(res.Order.Total)); charged != want {
		t.Errorf("charged %d cents, order total is %d cents", charged, want)
	}
}

func TestHandleCheckout_Rejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Trail Jacket", "Coats", 120, 1)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	h := newHandler(db, newFakeGateway(), nil)

	tests := []struct {
		name string
		body any
	}{
		{"no items", checkoutBody()},
		{"out of stock", checkoutBody(item(p, 2))},
		{"merged lines exceed stock", checkoutBody(item(p, 1), item(p, 1))},
		{"unknown product", checkoutBody(map[string]any{"product_id": primitive.NewObjectID().Hex(), "quantity": 1})},
		{"zero quantity", checkoutBody(item(p, 0))},
		{"missing address", map[string]any{"items": []any{item(p, 1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := checkout(h, ann, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
		})
	}

	n, err := orderstore.New(db).Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("orders created: got %d, want 0", n)
	}
}

func TestHandleCheckout_GatewayFailureCancels(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Trail Jacket", "Coats", 50, 5)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	gw := newFakeGateway()
	gw.failNext = errors.New("connection refused")
	h := newHandler(db, gw, nil)

	rec := checkout(h, ann, checkoutBody(item(p, 1)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	byStatus, err := orderstore.New(db).CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if byStatus[models.OrderCancelled] != 1 || byStatus[models.OrderPending] != 0 {
		t.Errorf("by status: %v", byStatus)
	}
}

func TestHandleCheckout_DisabledGateway(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Mug", "Kitchen", 12, 5)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	h := newHandler(db, payments.Disabled{}, nil)

	rec := checkout(h, ann, checkoutBody(item(p, 2)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var res checkoutResult
	testutil.DecodeJSON(t, rec, &res)
	if res.CheckoutURL != "" {
		t.Errorf("checkout_url: got %q, want empty", res.CheckoutURL)
	}
	// 24 + 10 shipping + 1.92 tax
	if res.Order.Total != 35.92 {
		t.Errorf("total: got %v, want 35.92", res.Order.Total)
	}
}

func TestPaymentConfirmation_DecrementsOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Trail Jacket", "Coats", 120, 5)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	gw := newFakeGateway()
	mail := &captureMail{}
	h := newHandler(db, gw, mail)

	rec := checkout(h, ann, checkoutBody(item(p, 2)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", rec.Code, rec.Body.String())
	}
	var res checkoutResult
	testutil.DecodeJSON(t, rec, &res)
	sid := res.Order.PaymentSessionID

	verify := func() verifyResult {
		req := httptest.NewRequest("GET", "/api/orders/verify?session_id="+sid, nil)
		req = testutil.WithUser(req, testutil.AsTestUser(ann))
		rec := httptest.NewRecorder()
		h.HandleVerify(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("verify: %d %s", rec.Code, rec.Body.String())
		}
		var v verifyResult
		testutil.DecodeJSON(t, rec, &v)
		return v
	}

	if v := verify(); v.Paid || v.Order.Status != models.OrderPending {
		t.Fatalf("unpaid session verified as %+v", v)
	}

	gw.markPaid(sid)
	if v := verify(); !v.Paid || v.Order.Status != models.OrderPaid {
		t.Fatalf("paid session verified as %+v", v)
	}

	// The webhook for the same session arrives after verify.
	gw.event = &payments.Event{
		ID:      "evt_1",
		Type:    payments.EventCheckoutCompleted,
		Session: payments.Session{ID: sid, OrderID: res.Order.ID.Hex(), Paid: true},
	}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/webhooks/payment", strings.NewReader(`{}`))
		req.Header.Set(orders.SignatureHeader, "valid")
		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("webhook %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}
	verify()

	if got := inventory(t, db, p.ID); got != 3 {
		t.Errorf("inventory: got %d, want 3", got)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("receipts: got %d, want 1", len(mail.sent))
	}
	if mail.sent[0].To != "ann@example.com" {
		t.Errorf("receipt to: %q", mail.sent[0].To)
	}
	if n := auditCount(t, db, res.Order.ID, audit.EventOrderPlaced); n != 1 {
		t.Errorf("placed events: got %d, want 1", n)
	}
	if n := auditCount(t, db, res.Order.ID, audit.EventOrderPaid); n != 1 {
		t.Errorf("paid events: got %d, want 1", n)
	}
}

type verifyResult struct {
	Order models.Order `json:"order"`
	Paid  bool         `json:"paid"`
}

func TestHandleVerify_OtherUsersOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Mug", "Kitchen", 12, 5)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	bob := fx.CreateCustomer(ctx, "Bob", "bob@example.com")
	h := newHandler(db, newFakeGateway(), nil)

	var res checkoutResult
	testutil.DecodeJSON(t, checkout(h, ann, checkoutBody(item(p, 1))), &res)

	req := httptest.NewRequest("GET", "/api/orders/verify?session_id="+res.Order.PaymentSessionID, nil)
	req = testutil.WithUser(req, testutil.AsTestUser(bob))
	rec := httptest.NewRecorder()
	h.HandleVerify(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestHandleWebhook(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Mug", "Kitchen", 12, 5)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	o := fx.CreateOrder(ctx, ann.ID, models.OrderPending, models.OrderItem{Product: p.ID, Title: p.Title, Quantity: 1, Price: 12})
	gw := newFakeGateway()
	h := newHandler(db, gw, nil)

	post := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/webhooks/payment", strings.NewReader(`{}`))
		req.Header.Set(orders.SignatureHeader, sig)
		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, req)
		return rec
	}

	if rec := post("forged"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad signature: got %d, want 400", rec.Code)
	}

	gw.event = &payments.Event{ID: "evt_other", Type: "payment_intent.created"}
	if rec := post("valid"); rec.Code != http.StatusOK {
		t.Errorf("ignored event: got %d, want 200", rec.Code)
	}

	gw.event = &payments.Event{ID: "evt_unknown", Type: payments.EventCheckoutCompleted,
		Session: payments.Session{ID: "cs_missing", OrderID: primitive.NewObjectID().Hex(), Paid: true}}
	if rec := post("valid"); rec.Code != http.StatusOK {
		t.Errorf("unknown order: got %d, want 200", rec.Code)
	}

	gw.event = &payments.Event{ID: "evt_ok", Type: payments.EventCheckoutCompleted,
		Session: payments.Session{ID: "cs_1", OrderID: o.ID.Hex(), Paid: true}}
	if rec := post("valid"); rec.Code != http.StatusOK {
		t.Fatalf("completed: got %d (%s)", rec.Code, rec.Body.String())
	}
	got, err := orderstore.New(db).GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if got.Status != models.OrderPaid || got.PaidAt == nil {
		t.Errorf("order after webhook: status %q paid_at %v", got.Status, got.PaidAt)
	}
	if inv := inventory(t, db, p.ID); inv != 4 {
		t.Errorf("inventory: got %d, want 4", inv)
	}
}

func TestHandleStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProduct(ctx, "Mug", "Kitchen", 12, 5)
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	o := fx.CreateOrder(ctx, ann.ID, models.OrderPending, models.OrderItem{Product: p.ID, Title: p.Title, Quantity: 2, Price: 12})
	h := newHandler(db, payments.Disabled{}, nil)

	patch := func(status string) *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest("PATCH", "/", map[string]any{"status": status})
		req = testutil.WithChiURLParam(req, "id", o.ID.Hex())
		req = testutil.WithUser(req, testutil.AdminUser())
		rec := httptest.NewRecorder()
		h.HandleStatus(rec, req)
		return rec
	}

	steps := []struct {
		to   string
		want int
	}{
		{models.OrderShipped, http.StatusBadRequest},
		{"refunded", http.StatusBadRequest},
		{models.OrderPaid, http.StatusOK},
		{models.OrderPaid, http.StatusOK},
		{models.OrderShipped, http.StatusOK},
		{models.OrderCancelled, http.StatusBadRequest},
		{models.OrderDelivered, http.StatusOK},
		{models.OrderPending, http.StatusBadRequest},
	}
	for _, s := range steps {
		if rec := patch(s.to); rec.Code != s.want {
			t.Errorf("-> %s: got %d, want %d (%s)", s.to, rec.Code, s.want, rec.Body.String())
		}
	}
	if inv := inventory(t, db, p.ID); inv != 3 {
		t.Errorf("inventory: got %d, want 3", inv)
	}
	// pending→paid, paid→shipped, shipped→delivered; the repeated paid is not a change.
	if n := auditCount(t, db, o.ID, audit.EventOrderStatusChanged); n != 3 {
		t.Errorf("status events: got %d, want 3", n)
	}
}

func TestServeMyOrder_OwnerOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")
	bob := fx.CreateCustomer(ctx, "Bob", "bob@example.com")
	o := fx.CreateOrder(ctx, ann.ID, models.OrderPending, models.OrderItem{Product: primitive.NewObjectID(), Title: "x", Quantity: 1, Price: 5})
	fx.CreateOrder(ctx, bob.ID, models.OrderPaid, models.OrderItem{Product: primitive.NewObjectID(), Title: "y", Quantity: 1, Price: 5})
	h := newHandler(db, payments.Disabled{}, nil)

	get := func(as models.User) int {
		req := testutil.WithChiURLParam(httptest.NewRequest("GET", "/", nil), "id", o.ID.Hex())
		req = testutil.WithUser(req, testutil.AsTestUser(as))
		rec := httptest.NewRecorder()
		h.ServeMyOrder(rec, req)
		return rec.Code
	}
	if code := get(ann); code != http.StatusOK {
		t.Errorf("owner: got %d, want 200", code)
	}
	if code := get(bob); code != http.StatusNotFound {
		t.Errorf("other user: got %d, want 404", code)
	}

	req := testutil.WithUser(httptest.NewRequest("GET", "/api/account/orders", nil), testutil.AsTestUser(ann))
	rec := httptest.NewRecorder()
	h.ServeMyOrders(rec, req)
	var list struct {
		Total int64 `json:"total"`
	}
	testutil.DecodeJSON(t, rec, &list)
	if list.Total != 1 {
		t.Errorf("my orders: got %d, want 1", list.Total)
	}
}
