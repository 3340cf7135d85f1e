package contact_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/storefront/internal/app/features/contact"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/app/system/ratelimit"
	"github.com/dalemusser/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type outbox struct {
	sent []mailer.Email
	err  error
}

func (o *outbox) Send(_ context.Context, e mailer.Email) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, e)
	return nil
}

func newTestHandler(out *outbox, to string) *contact.Handler {
	logger := zap.NewNop()
	return contact.NewHandler(out, to, "Shop", apierr.NewErrorLogger(logger), logger)
}

func post(h http.HandlerFunc, body map[string]any) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, testutil.NewJSONRequest("POST", "/api/contact", body))
	return rec
}

var validMessage = map[string]any{
	"name":    "Ann",
	"email":   "ann@example.com",
	"subject": "Sizing",
	"message": "Does the <b>linen shirt</b> run small?",
}

func TestHandleContact_Sends(t *testing.T) {
	out := &outbox{}
	h := newTestHandler(out, "help@shop.example")

	rec := post(h.HandleContact, validMessage)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, out.sent, 1)
	msg := out.sent[0]
	assert.Equal(t, "help@shop.example", msg.To)
	assert.Equal(t, "ann@example.com", msg.ReplyTo)
	assert.Equal(t, "[Shop contact] Sizing", msg.Subject)
	assert.Contains(t, msg.TextBody, "Does the linen shirt run small?")
	assert.NotContains(t, msg.TextBody, "<b>")
}

func TestHandleContact_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"email": "a@b.com", "message": "hi"}},
		{"bad email", map[string]any{"name": "A", "email": "not-an-email", "message": "hi"}},
		{"empty message", map[string]any{"name": "A", "email": "a@b.com", "message": "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := &outbox{}
			rec := post(newTestHandler(out, "help@shop.example").HandleContact, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, out.sent)
		})
	}
}

func TestHandleContact_NoAddressConfigured(t *testing.T) {
	out := &outbox{}
	rec := post(newTestHandler(out, "").HandleContact, validMessage)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, out.sent)
}

func TestHandleContact_SendFails(t *testing.T) {
	out := &outbox{err: errors.New("smtp down")}
	rec := post(newTestHandler(out, "help@shop.example").HandleContact, validMessage)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "smtp down")
}

func TestRoutes_RateLimited(t *testing.T) {
	out := &outbox{}
	limiter := ratelimit.New(0.001, 1)
	defer limiter.Stop()
	router := contact.Routes(newTestHandler(out, "help@shop.example"), limiter)

	var codes []int
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/", validMessage))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Len(t, out.sent, 1)
}
