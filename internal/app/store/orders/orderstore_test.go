package orderstore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/orderflow"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func item(price float64, qty int) models.OrderItem {
	return models.OrderItem{Product: primitive.NewObjectID(), Title: "Thing", Quantity: qty, Price: price}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	o, err := store.Create(ctx, models.Order{
		User:     user,
		Items:    []models.OrderItem{item(120, 1)},
		Subtotal: 120, Shipping: 0, Tax: 9.6, Total: 129.6,
		Status: models.OrderPaid, // ignored
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if o.Status != models.OrderPending {
		t.Errorf("Status = %q, want pending", o.Status)
	}

	got, err := store.GetForUser(ctx, o.ID, user)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if got.Total != 129.6 {
		t.Errorf("Total = %v, want 129.6", got.Total)
	}
	if _, err := store.GetForUser(ctx, o.ID, primitive.NewObjectID()); err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments for another user, got %v", err)
	}

	if _, err := store.Create(ctx, models.Order{User: user}); !errors.Is(err, orderstore.ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}
}

func TestStore_MarkPaid_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := fixtures.CreateOrder(ctx, primitive.NewObjectID(), models.OrderPending, item(10, 1))

	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, moved, err := store.MarkPaid(ctx, o.ID, time.Now())
			if err != nil {
				t.Errorf("MarkPaid failed: %v", err)
				return
			}
			if moved {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Errorf("transitions = %d, want exactly 1", transitions)
	}
	got, _ := store.GetByID(ctx, o.ID)
	if got.Status != models.OrderPaid || got.PaidAt == nil {
		t.Errorf("order = status %q paid_at %v", got.Status, got.PaidAt)
	}

	if _, _, err := store.MarkPaid(ctx, primitive.NewObjectID(), time.Now()); err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments for unknown order, got %v", err)
	}
}

func TestStore_MarkPaid_CancelledStaysCancelled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := fixtures.CreateOrder(ctx, primitive.NewObjectID(), models.OrderCancelled, item(10, 1))
	got, moved, err := store.MarkPaid(ctx, o.ID, time.Now())
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if moved || got.Status != models.OrderCancelled {
		t.Errorf("moved=%v status=%q, want untouched cancelled order", moved, got.Status)
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := fixtures.CreateOrder(ctx, primitive.NewObjectID(), models.OrderPaid, item(10, 1))

	steps := []struct {
		to      string
		wantErr bool
	}{
		{models.OrderShipped, false},
		{models.OrderShipped, false}, // same status is a no-op
		{models.OrderPending, true},
		{models.OrderDelivered, false},
		{models.OrderCancelled, true},
	}
	for _, st := range steps {
		_, err := store.UpdateStatus(ctx, o.ID, st.to)
		if st.wantErr {
			if !errors.Is(err, orderflow.ErrInvalidTransition) {
				t.Errorf("UpdateStatus(%s): expected ErrInvalidTransition, got %v", st.to, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("UpdateStatus(%s) failed: %v", st.to, err)
		}
	}
	got, _ := store.GetByID(ctx, o.ID)
	if got.Status != models.OrderDelivered {
		t.Errorf("final status = %q, want delivered", got.Status)
	}
}

func TestStore_CancelStalePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := fixtures.CreateOrder(ctx, primitive.NewObjectID(), models.OrderPending, item(10, 1))
	fresh := fixtures.CreateOrder(ctx, primitive.NewObjectID(), models.OrderPending, item(10, 1))
	paid := fixtures.CreateOrder(ctx, primitive.NewObjectID(), models.OrderPaid, item(10, 1))

	past := time.Now().Add(-48 * time.Hour)
	for _, id := range []primitive.ObjectID{old.ID, paid.ID} {
		if _, err := db.Collection("orders").UpdateByID(ctx, id, bson.M{"$set": bson.M{"created_at": past}}); err != nil {
			t.Fatalf("backdate failed: %v", err)
		}
	}

	n, err := store.CancelStalePending(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CancelStalePending failed: %v", err)
	}
	if n != 1 {
		t.Errorf("cancelled %d, want 1", n)
	}
	for id, want := range map[primitive.ObjectID]string{
		old.ID:   models.OrderCancelled,
		fresh.ID: models.OrderPending,
		paid.ID:  models.OrderPaid,
	} {
		got, _ := store.GetByID(ctx, id)
		if got.Status != want {
			t.Errorf("order %s status = %q, want %q", id.Hex(), got.Status, want)
		}
	}
}

func TestStore_ListsAndStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ann := primitive.NewObjectID()
	fixtures.CreateOrder(ctx, ann, models.OrderPaid, item(50, 2))
	fixtures.CreateOrder(ctx, ann, models.OrderPending, item(10, 1))
	fixtures.CreateOrder(ctx, primitive.NewObjectID(), models.OrderDelivered, item(25, 1))

	mine, total, err := store.ListForUser(ctx, ann, paging.New(1, 10))
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Errorf("ListForUser total=%d len=%d, want 2", total, len(mine))
	}

	pending, total, err := store.List(ctx, models.OrderPending, paging.New(1, 10))
	if err != nil || total != 1 || len(pending) != 1 {
		t.Errorf("List(pending) = %d items, total %d, err %v", len(pending), total, err)
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[models.OrderPaid] != 1 || counts[models.OrderShipped] != 0 || len(counts) != 5 {
		t.Errorf("CountByStatus = %v", counts)
	}

	revenue, err := store.Revenue(ctx)
	if err != nil {
		t.Fatalf("Revenue failed: %v", err)
	}
	if revenue != 125 {
		t.Errorf("Revenue = %v, want 125 (paid 100 + delivered 25)", revenue)
	}
}
