package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/slug"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateUser creates a test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		EmailCI:   text.Fold(email),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateCustomer creates a test user with the default role.
func (f *Fixtures) CreateCustomer(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleUser)
}

// CreateCategory creates a test category.
func (f *Fixtures) CreateCategory(ctx context.Context, title string) models.Category {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Category{
		ID:        primitive.NewObjectID(),
		Title:     title,
		TitleCI:   text.Fold(title),
		Slug:      slug.Make(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "categories", c)
	return c
}

// CreateCollection creates an empty test collection.
func (f *Fixtures) CreateCollection(ctx context.Context, title string) models.Collection {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Collection{
		ID:        primitive.NewObjectID(),
		Title:     title,
		TitleCI:   text.Fold(title),
		Slug:      slug.Make(title),
		Products:  []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "collections", c)
	return c
}

// CreateProduct creates a test product with the given price and stock.
// The collections side of membership is not touched.
func (f *Fixtures) CreateProduct(ctx context.Context, title, category string, price float64, inventory int) models.Product {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Product{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		Slug:        slug.Make(title),
		Description: title + " description",
		Price:       price,
		Images:      []string{},
		Category:    category,
		Tags:        []string{},
		Sizes:       []string{},
		Colors:      []string{},
		Collections: []primitive.ObjectID{},
		Inventory:   inventory,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "products", p)
	return p
}

// CreateReview creates a test review without touching the product rating.
func (f *Fixtures) CreateReview(ctx context.Context, user models.User, productID primitive.ObjectID, rating int) models.Review {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.Review{
		ID:        primitive.NewObjectID(),
		User:      user.ID,
		UserName:  user.Name,
		Product:   productID,
		Rating:    rating,
		Comment:   "test review",
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "reviews", r)
	return r
}

// CreateOrder creates a test order for user in the given status.
func (f *Fixtures) CreateOrder(ctx context.Context, userID primitive.ObjectID, status string, items ...models.OrderItem) models.Order {
	f.t.Helper()

	now := time.Now().UTC()
	sub := 0.0
	for _, it := range items {
		sub += it.Price * float64(it.Quantity)
	}
	o := models.Order{
		ID:       primitive.NewObjectID(),
		User:     userID,
		Items:    items,
		Subtotal: sub,
		Total:    sub,
		Status:   status,
		ShippingAddress: models.ShippingAddress{
			FullName:   "Test Customer",
			Line1:      "1 Main St",
			City:       "Testville",
			PostalCode: "12345",
			Country:    "US",
		},
		PaymentMethod: "card",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if items == nil {
		o.Items = []models.OrderItem{}
	}
	f.insert(ctx, "orders", o)
	return o
}

// AsTestUser converts a stored user into the TestUser injected by WithUser.
func AsTestUser(u models.User) TestUser {
	return TestUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role}
}
