package users_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/storefront/internal/app/features/users"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(db *mongo.Database) *users.Handler {
	logger := zap.NewNop()
	return users.NewHandler(db, apierr.NewErrorLogger(logger), nil, logger)
}

type listResponse struct {
	Items []struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		Role        string `json:"role"`
		HasPassword bool   `json:"has_password"`
	} `json:"items"`
	Total int64 `json:"total"`
}

func list(t *testing.T, h *users.Handler, target string) listResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", target, testutil.AdminUser()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp listResponse
	testutil.DecodeJSON(t, rec, &resp)
	return resp
}

func TestServeList_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateAdmin(ctx, "Ada Admin", "ada@example.com")
	fixtures.CreateCustomer(ctx, "Ann Buyer", "ann@example.com")
	fixtures.CreateCustomer(ctx, "Bob Buyer", "bob@shop.test")

	h := newTestHandler(db)

	assert.EqualValues(t, 3, list(t, h, "/api/admin/users").Total)

	admins := list(t, h, "/api/admin/users?role=admin")
	require.Len(t, admins.Items, 1)
	assert.Equal(t, "ada@example.com", admins.Items[0].Email)

	buyers := list(t, h, "/api/admin/users?q=buyer")
	assert.EqualValues(t, 2, buyers.Total)

	byEmail := list(t, h, "/api/admin/users?q=SHOP.test&role=user")
	require.Len(t, byEmail.Items, 1)
	assert.Equal(t, "bob@shop.test", byEmail.Items[0].Email)

	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/users?role=owner", testutil.AdminUser()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeList_HidesCredentials(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := userstore.New(db).Create(ctx, models.User{
		Name: "Pat", Email: "pat@example.com", PasswordHash: "$2a$10$secret-hash",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newTestHandler(db).ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/users", testutil.AdminUser()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
	assert.Contains(t, rec.Body.String(), `"has_password":true`)
}

func patchRole(h *users.Handler, actor testutil.TestUser, id, role string) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest("PATCH", "/api/admin/users/"+id+"/role", map[string]any{"role": role})
	req = testutil.WithChiURLParam(testutil.WithUser(req, actor), "id", id)
	rec := httptest.NewRecorder()
	h.HandleRole(rec, req)
	return rec
}

func TestHandleRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateAdmin(ctx, "Ada", "ada@example.com")
	ann := fixtures.CreateCustomer(ctx, "Ann", "ann@example.com")
	h := newTestHandler(db)
	actor := testutil.AsTestUser(admin)

	rec := patchRole(h, actor, ann.ID.Hex(), models.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := userstore.New(db).GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	cases := []struct {
		name string
		id   string
		role string
		want int
	}{
		{"own role", admin.ID.Hex(), models.RoleUser, http.StatusBadRequest},
		{"unknown role", ann.ID.Hex(), "owner", http.StatusBadRequest},
		{"missing user", primitive.NewObjectID().Hex(), models.RoleUser, http.StatusNotFound},
		{"malformed id", "nope", models.RoleUser, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, patchRole(h, actor, tc.id, tc.role).Code)
		})
	}

	self, err := userstore.New(db).GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, self.Role)
}
