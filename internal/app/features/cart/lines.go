package cart

import (
	"context"
	"fmt"

	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ItemInput is one requested cart line.
type ItemInput struct {
	ProductID string `json:"product_id" validate:"required,len=24,hexadecimal"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=999"`
}

// UnknownProductError names a requested product that does not exist.
type UnknownProductError struct {
	ID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s does not exist", e.ID)
}

// Line is a requested item priced from the current product document.
type Line struct {
	Product  models.Product
	Quantity int
}

// Resolve loads every requested product and pairs it with its quantity, in
// request order. Repeated product ids are merged into one line.
func Resolve(ctx context.Context, db *mongo.Database, items []ItemInput) ([]Line, error) {
	order := make([]primitive.ObjectID, 0, len(items))
	qty := make(map[primitive.ObjectID]int, len(items))
	for _, it := range items {
		oid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, &UnknownProductError{ID: it.ProductID}
		}
		if _, seen := qty[oid]; !seen {
			order = append(order, oid)
		}
		qty[oid] += it.Quantity
	}

	found, err := productstore.New(db).GetMany(ctx, order)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(order))
	for _, oid := range order {
		p, ok := found[oid]
		if !ok {
			return nil, &UnknownProductError{ID: oid.Hex()}
		}
		lines = append(lines, Line{Product: p, Quantity: qty[oid]})
	}
	return lines, nil
}

// PricingLines converts resolved lines for the pricing package.
func PricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = pricing.Line{UnitPrice: pricing.Cents(l.Product.Price), Quantity: l.Quantity}
	}
	return out
}
