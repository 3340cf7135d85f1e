package passwordreset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/authutil"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (o *outbox) Send(_ context.Context, e mailer.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, e)
	return nil
}

// token pulls the reset token out of the emailed link.
func (o *outbox) token(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	body := o.sent[len(o.sent)-1].TextBody
	i := strings.Index(body, "?token=")
	require.GreaterOrEqual(t, i, 0, "no link in %q", body)
	raw := strings.Fields(body[i+len("?token="):])[0]
	tok, err := url.QueryUnescape(raw)
	require.NoError(t, err)
	return tok
}

func newHandler(db *mongo.Database, out *outbox) *Handler {
	return NewHandler(db, out, "https://shop.example/", "Shop", apierr.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
}

func forgot(h *Handler, email string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleForgot(rec, testutil.NewJSONRequest("POST", "/api/auth/forgot-password", map[string]any{"email": email}))
	return rec
}

func reset(h *Handler, token, pw string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleReset(rec, testutil.NewJSONRequest("POST", "/api/auth/reset-password", map[string]any{"token": token, "password": pw}))
	return rec
}

func TestForgot_SameAnswerForUnknownEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateCustomer(ctx, "Ann", "ann@example.com")

	out := &outbox{}
	h := newHandler(db, out)

	known := forgot(h, "ANN@example.com")
	unknown := forgot(h, "nobody@example.com")

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	require.Len(t, out.sent, 1)
	assert.Equal(t, "ann@example.com", out.sent[0].To)
	assert.Contains(t, out.sent[0].TextBody, "https://shop.example/reset-password?token=")
	assert.Contains(t, out.sent[0].TextBody, "1 hour")
}

func TestReset_SingleUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ann := fx.CreateCustomer(ctx, "Ann", "ann@example.com")

	out := &outbox{}
	h := newHandler(db, out)
	require.Equal(t, http.StatusOK, forgot(h, "ann@example.com").Code)
	tok := out.token(t)

	assert.Equal(t, http.StatusBadRequest, reset(h, tok, "short").Code, "weak password")
	assert.Equal(t, http.StatusBadRequest, reset(h, "not-the-token", "maple-syrup-42").Code, "wrong token")
	assert.Equal(t, http.StatusOK, reset(h, tok, "maple-syrup-42").Code)
	assert.Equal(t, http.StatusBadRequest, reset(h, tok, "maple-syrup-43").Code, "reused token")

	u, err := userstore.New(db).GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.True(t, authutil.CheckPassword("maple-syrup-42", u.PasswordHash))
	assert.Empty(t, u.ResetTokenHash)
}

func TestReset_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateCustomer(ctx, "Ann", "ann@example.com")

	out := &outbox{}
	h := newHandler(db, out)
	issued := time.Now()
	h.now = func() time.Time { return issued }
	require.Equal(t, http.StatusOK, forgot(h, "ann@example.com").Code)
	tok := out.token(t)

	h.now = func() time.Time { return issued.Add(authutil.ResetTokenTTL + time.Minute) }
	assert.Equal(t, http.StatusBadRequest, reset(h, tok, "maple-syrup-42").Code)
}

func TestFormatExpiryDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{time.Minute, "1 minute"},
		{30 * time.Minute, "30 minutes"},
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatExpiryDuration(tt.d))
	}
}
