// Package ratings maintains the derived Product.rating aggregate.
//
// The aggregate is always recomputed from every current review of the product,
// never adjusted incrementally, so it cannot drift from the reviews collection
// as long as Recompute runs after each review mutation.
package ratings

import (
	"context"
	"fmt"
	"math"

	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewSource lists the ratings of every current review of a product.
type ReviewSource interface {
	RatingsForProduct(ctx context.Context, productID primitive.ObjectID) ([]int, error)
}

// RatingSink writes the aggregate onto the product.
type RatingSink interface {
	SetRating(ctx context.Context, productID primitive.ObjectID, r models.Rating) error
}

// Aggregate returns the mean (rounded to 2 decimals) and count of ratings.
// An empty slice yields 0/0.
func Aggregate(ratings []int) models.Rating {
	if len(ratings) == 0 {
		return models.Rating{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return models.Rating{
		Average: math.Round(avg*100) / 100,
		Count:   len(ratings),
	}
}

// Recompute reads all reviews for productID and stores the fresh aggregate.
func Recompute(ctx context.Context, src ReviewSource, sink RatingSink, productID primitive.ObjectID) (models.Rating, error) {
	rs, err := src.RatingsForProduct(ctx, productID)
	if err != nil {
		return models.Rating{}, fmt.Errorf("load ratings: %w", err)
	}
	agg := Aggregate(rs)
	if err := sink.SetRating(ctx, productID, agg); err != nil {
		return models.Rating{}, fmt.Errorf("store rating: %w", err)
	}
	return agg, nil
}

// Valid reports whether r is an allowed star rating.
func Valid(r int) bool { return r >= 1 && r <= 5 }
