package search_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/storefront/internal/app/features/search"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.uber.org/zap"
)

func TestServe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateProduct(ctx, "Garden Hose", "Garden", 20, 3)
	fx.CreateProduct(ctx, "Desk Lamp", "Office", 35, 3)
	fx.CreateCategory(ctx, "Garden")
	fx.CreateCollection(ctx, "Garden Party")

	h := search.NewHandler(db, apierr.NewErrorLogger(zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/api/search?q=garden", nil))
	var res search.Results
	testutil.DecodeJSON(t, rec, &res)
	if len(res.Products) != 1 || len(res.Categories) != 1 || len(res.Collections) != 1 {
		t.Errorf("got %d products, %d categories, %d collections",
			len(res.Products), len(res.Categories), len(res.Collections))
	}

	rec = httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/api/search", nil))
	testutil.DecodeJSON(t, rec, &res)
	if res.Products == nil || len(res.Products) != 0 {
		t.Errorf("empty query: products = %v", res.Products)
	}
}
