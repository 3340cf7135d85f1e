package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultStripeBase = "https://api.stripe.com"
	// signatureTolerance bounds the age of a webhook timestamp.
	signatureTolerance = 5 * time.Minute
)

// Stripe talks to the Stripe Checkout REST API with form-encoded requests.
type Stripe struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	http          *http.Client
	now           func() time.Time
	log           *zap.Logger
}

// StripeOption customizes a Stripe gateway.
type StripeOption func(*Stripe)

// WithBaseURL points the client at a different API host (tests, proxies).
func WithBaseURL(u string) StripeOption {
	return func(s *Stripe) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) StripeOption { return func(s *Stripe) { s.http = c } }

// WithClock replaces time.Now for signature checks.
func WithClock(now func() time.Time) StripeOption { return func(s *Stripe) { s.now = now } }

// NewStripe builds the gateway.
func NewStripe(secretKey, webhookSecret string, log *zap.Logger, opts ...StripeOption) *Stripe {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Stripe{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       defaultStripeBase,
		http:          &http.Client{Timeout: 15 * time.Second},
		now:           time.Now,
		log:           log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Stripe) Name() string { return "stripe" }

type stripeSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	AmountTotal       int64             `json:"amount_total"`
	Metadata          map[string]string `json:"metadata"`
}

func (ss stripeSession) toSession() *Session {
	orderID := ss.ClientReferenceID
	if orderID == "" {
		orderID = ss.Metadata["order_id"]
	}
	return &Session{
		ID:          ss.ID,
		URL:         ss.URL,
		OrderID:     orderID,
		Paid:        ss.PaymentStatus == "paid",
		AmountTotal: ss.AmountTotal,
	}
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateSession starts a hosted checkout in "payment" mode.
func (s *Stripe) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.OrderID)
	form.Set("metadata[order_id]", req.OrderID)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	n := 0
	for _, li := range req.Lines {
		if li.Quantity < 1 || li.UnitPrice.IsNegative() {
			continue
		}
		p := fmt.Sprintf("line_items[%d]", n)
		form.Set(p+"[quantity]", strconv.Itoa(li.Quantity))
		form.Set(p+"[price_data][currency]", currency)
		form.Set(p+"[price_data][unit_amount]", strconv.FormatInt(MinorUnits(li.UnitPrice), 10))
		form.Set(p+"[price_data][product_data][name]", li.Name)
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("payments: session for order %s has no line items", req.OrderID)
	}

	var out stripeSession
	if err := s.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	s.log.Info("checkout session created",
		zap.String("order_id", req.OrderID),
		zap.String("session_id", out.ID))
	return out.toSession(), nil
}

// RetrieveSession fetches a session's payment status.
func (s *Stripe) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("payments: empty session id")
	}
	var out stripeSession
	if err := s.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

func (s *Stripe) do(ctx context.Context, method, path string, form url.Values, dst any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("payments: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("payments: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var se stripeError
		_ = json.Unmarshal(raw, &se)
		return fmt.Errorf("payments: %s %s: status %d: %s", method, path, resp.StatusCode, se.Error.Message)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("payments: decode response: %w", err)
	}
	return nil
}

// ParseWebhook verifies a "t=<unix>,v1=<hex>" signature header over
// "<t>.<payload>" and decodes the event.
func (s *Stripe) ParseWebhook(payload []byte, header string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("payments: webhook secret not configured")
	}
	if err := VerifySignature(payload, header, s.webhookSecret, s.now(), signatureTolerance); err != nil {
		return nil, err
	}

	var ev struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object stripeSession `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("payments: decode event: %w", err)
	}
	return &Event{ID: ev.ID, Type: ev.Type, Session: *ev.Data.Object.toSession()}, nil
}

// VerifySignature checks header against payload. Any v1 entry may match, which
// allows secret rotation.
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return ErrBadSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if age := now.Sub(time.Unix(unix, 0)); tolerance > 0 && (age > tolerance || age < -tolerance) {
		return ErrBadSignature
	}

	expected := Sign(payload, secret, ts)
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign returns the hex HMAC-SHA256 of "<ts>.<payload>".
func Sign(payload []byte, secret, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
