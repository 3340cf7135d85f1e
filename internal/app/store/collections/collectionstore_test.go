package collectionstore_test

import (
	"context"
	"testing"

	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
	"github.com/dalemusser/storefront/internal/app/system/membership"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ membership.Writer = (*collectionstore.Store)(nil)

func members(t *testing.T, ctx context.Context, store *collectionstore.Store, id primitive.ObjectID) []primitive.ObjectID {
	t.Helper()
	c, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	return c.Products
}

func TestStore_MembershipWriter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := collectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	summer, err := store.Create(ctx, models.Collection{Title: "Summer"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	sale, err := store.Create(ctx, models.Collection{Title: "Sale"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	product := primitive.NewObjectID()

	// Sync {} -> {summer, sale}
	if err := membership.Sync(ctx, store, product, nil, []primitive.ObjectID{summer.ID, sale.ID}); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	// Re-adding is idempotent.
	if err := store.AddProduct(ctx, []primitive.ObjectID{summer.ID}, product); err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}
	if got := members(t, ctx, store, summer.ID); len(got) != 1 || got[0] != product {
		t.Errorf("summer products = %v", got)
	}

	// Sync {summer, sale} -> {sale}
	if err := membership.Sync(ctx, store, product, []primitive.ObjectID{summer.ID, sale.ID}, []primitive.ObjectID{sale.ID}); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if got := members(t, ctx, store, summer.ID); len(got) != 0 {
		t.Errorf("summer products after removal = %v", got)
	}

	if err := membership.Detach(ctx, store, product); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if got := members(t, ctx, store, sale.ID); len(got) != 0 {
		t.Errorf("sale products after detach = %v", got)
	}
}

func TestStore_UpdateKeepsProducts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := collectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := store.Create(ctx, models.Collection{Title: "Essentials"})
	p := primitive.NewObjectID()
	if err := store.AddProduct(ctx, []primitive.ObjectID{c.ID}, p); err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}

	c.Title = "Everyday Essentials"
	c.Slug = ""
	c.Products = nil
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.GetBySlug(ctx, "everyday-essentials")
	if len(got.Products) != 1 {
		t.Errorf("Update must not touch products, got %v", got.Products)
	}
}

func TestStore_ExistingIDsAndSetProducts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := collectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.Create(ctx, models.Collection{Title: "A"})
	b, _ := store.Create(ctx, models.Collection{Title: "B"})
	ghost := primitive.NewObjectID()

	ids, err := store.ExistingIDs(ctx, []primitive.ObjectID{b.ID, ghost, a.ID, b.ID})
	if err != nil {
		t.Fatalf("ExistingIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != b.ID || ids[1] != a.ID {
		t.Errorf("ExistingIDs = %v, want [b a]", ids)
	}

	p := primitive.NewObjectID()
	changed, err := store.SetProducts(ctx, a.ID, []primitive.ObjectID{p})
	if err != nil || !changed {
		t.Fatalf("SetProducts = %v, %v; want changed", changed, err)
	}
	changed, err = store.SetProducts(ctx, a.ID, []primitive.ObjectID{p})
	if err != nil || changed {
		t.Errorf("SetProducts with same array = %v, %v; want unchanged", changed, err)
	}
}
