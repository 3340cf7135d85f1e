// internal/domain/models/product.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rating is the derived review aggregate stored on a product.
// It is always recomputed from the reviews collection, never incremented.
type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Product is a catalog item.
type Product struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title        string               `bson:"title" json:"title"`
	TitleCI      string               `bson:"title_ci" json:"-"` // ← always stored
	Slug         string               `bson:"slug" json:"slug"`
	Description  string               `bson:"description" json:"description"`
	Price        float64              `bson:"price" json:"price"`
	ComparePrice float64              `bson:"compare_price,omitempty" json:"compare_price,omitempty"`
	Images       []string             `bson:"images" json:"images"`
	Category     string               `bson:"category" json:"category"`
	Tags         []string             `bson:"tags" json:"tags"`
	Sizes        []string             `bson:"sizes" json:"sizes"`
	Colors       []string             `bson:"colors" json:"colors"`
	Collections  []primitive.ObjectID `bson:"collections" json:"collections"`
	Rating       Rating               `bson:"rating" json:"rating"`
	Inventory    int                  `bson:"inventory" json:"inventory"`
	Featured     bool                 `bson:"featured" json:"featured"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// InStock reports whether at least qty units are available.
func (p Product) InStock(qty int) bool { return p.Inventory >= qty }
