package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/indexes"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Name:  "  Ann Shopper ",
		Email: " Ann@Example.com ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Name != "Ann Shopper" {
		t.Errorf("Name = %q, want trimmed", created.Name)
	}
	if created.Email != "ann@example.com" {
		t.Errorf("Email = %q, want lowercased", created.Email)
	}
	if created.EmailCI != "ann@example.com" {
		t.Errorf("EmailCI = %q", created.EmailCI)
	}
	if created.Role != models.RoleUser {
		t.Errorf("Role = %q, want default %q", created.Role, models.RoleUser)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Email: "x@example.com", Role: "owner"}); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	if _, err := store.Create(ctx, models.User{Name: "First", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{Name: "Second", Email: "DUP@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByEmail_CaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateCustomer(ctx, "Ann", "ann@example.com")

	got, err := store.GetByEmail(ctx, "  ANN@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got user %s, want %s", got.ID.Hex(), u.ID.Hex())
	}

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	if err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_ResetToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateCustomer(ctx, "Ann", "ann@example.com")
	now := time.Now().UTC()

	if err := store.SetResetToken(ctx, u.ID, "hash-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken failed: %v", err)
	}

	// Wrong token
	if _, err := store.ConsumeResetToken(ctx, "hash-2", "newhash", now); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken for unknown token, got %v", err)
	}

	// Expired at the given instant
	if _, err := store.ConsumeResetToken(ctx, "hash-1", "newhash", now.Add(2*time.Hour)); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken for expired token, got %v", err)
	}

	got, err := store.ConsumeResetToken(ctx, "hash-1", "newhash", now)
	if err != nil {
		t.Fatalf("ConsumeResetToken failed: %v", err)
	}
	if got.PasswordHash != "newhash" {
		t.Errorf("PasswordHash = %q, want newhash", got.PasswordHash)
	}
	if got.ResetTokenHash != "" || got.ResetTokenExpires != nil {
		t.Error("expected reset token to be cleared")
	}

	// Single use
	if _, err := store.ConsumeResetToken(ctx, "hash-1", "again", now); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestStore_Wishlist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateCustomer(ctx, "Ann", "ann@example.com")
	p1 := primitive.NewObjectID()
	p2 := primitive.NewObjectID()

	for _, id := range []primitive.ObjectID{p1, p2, p1} {
		if err := store.AddToWishlist(ctx, u.ID, id); err != nil {
			t.Fatalf("AddToWishlist failed: %v", err)
		}
	}
	list, err := store.Wishlist(ctx, u.ID)
	if err != nil {
		t.Fatalf("Wishlist failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("wishlist len = %d, want 2 (adding twice is a no-op)", len(list))
	}

	if err := store.RemoveFromWishlist(ctx, u.ID, p1); err != nil {
		t.Fatalf("RemoveFromWishlist failed: %v", err)
	}
	if err := store.PullFromWishlists(ctx, p2); err != nil {
		t.Fatalf("PullFromWishlists failed: %v", err)
	}
	list, _ = store.Wishlist(ctx, u.ID)
	if len(list) != 0 {
		t.Errorf("wishlist len = %d, want 0", len(list))
	}

	if err := store.AddToWishlist(ctx, primitive.NewObjectID(), p1); err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments for unknown user, got %v", err)
	}
}

func TestStore_EnsureAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Creates when missing
	u, created, err := store.EnsureAdmin(ctx, "boss@example.com", "", "hash")
	if err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	if !created || u.Role != models.RoleAdmin || u.PasswordHash != "hash" {
		t.Errorf("unexpected result: created=%v role=%q", created, u.Role)
	}

	// Promotes an existing customer
	c := fixtures.CreateCustomer(ctx, "Cat", "cat@example.com")
	u, created, err = store.EnsureAdmin(ctx, "cat@example.com", "", "ignored")
	if err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	if created || u.ID != c.ID || u.Role != models.RoleAdmin {
		t.Errorf("expected existing user promoted, got created=%v role=%q", created, u.Role)
	}
	got, _ := store.GetByID(ctx, c.ID)
	if !got.IsAdmin() {
		t.Error("expected stored role to be admin")
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateAdmin(ctx, "Alice Admin", "alice@example.com")
	fixtures.CreateCustomer(ctx, "Bob Buyer", "bob@example.com")
	fixtures.CreateCustomer(ctx, "Carol Buyer", "carol@shop.test")

	tests := []struct {
		name   string
		filter userstore.ListFilter
		want   int64
	}{
		{"all", userstore.ListFilter{}, 3},
		{"admins", userstore.ListFilter{Role: models.RoleAdmin}, 1},
		{"name query", userstore.ListFilter{Query: "buyer"}, 2},
		{"email query", userstore.ListFilter{Query: "shop.test"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := store.List(ctx, tt.filter, paging.New(1, 10))
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if total != tt.want || int64(len(items)) != tt.want {
				t.Errorf("got total=%d len=%d, want %d", total, len(items), tt.want)
			}
		})
	}
}

func TestFetcher_FetchSessionUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fetcher := userstore.NewFetcher(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateAdmin(ctx, "Alice Admin", "alice@example.com")

	su, err := fetcher.FetchSessionUser(ctx, admin.ID.Hex())
	if err != nil {
		t.Fatalf("FetchSessionUser failed: %v", err)
	}
	if su == nil || su.Email != "alice@example.com" || !su.IsAdmin() {
		t.Errorf("unexpected session user: %+v", su)
	}

	su, err = fetcher.FetchSessionUser(ctx, primitive.NewObjectID().Hex())
	if err != nil || su != nil {
		t.Errorf("expected (nil, nil) for missing user, got (%v, %v)", su, err)
	}

	su, err = fetcher.FetchSessionUser(ctx, "not-an-id")
	if err != nil || su != nil {
		t.Errorf("expected (nil, nil) for malformed id, got (%v, %v)", su, err)
	}
}
