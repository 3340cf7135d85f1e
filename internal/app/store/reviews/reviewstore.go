// internal/app/store/reviews/reviewstore.go
package reviewstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrDuplicateReview is returned when the user already reviewed the product.
var ErrDuplicateReview = errors.New("you have already reviewed this product")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reviews")}
}

// Create inserts a review. The (user, product) pair is unique.
func (s *Store) Create(ctx context.Context, r models.Review) (models.Review, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Review{}, ErrDuplicateReview
		}
		return models.Review{}, err
	}
	return r, nil
}

// GetByID loads a review. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var r models.Review
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	return r, err
}

// Update changes the rating and comment and returns the stored review.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, rating int, comment string) (models.Review, error) {
	var r models.Review
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"rating":     rating,
		"comment":    comment,
		"updated_at": time.Now().UTC(),
	}}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&r)
	return r, err
}

// Delete removes a review and returns it.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var r models.Review
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&r)
	return r, err
}

// DeleteByProduct removes every review of a deleted product.
func (s *Store) DeleteByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"product": productID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListForProduct returns one page of a product's reviews, newest first.
func (s *Store) ListForProduct(ctx context.Context, productID primitive.ObjectID, p paging.Page) ([]models.Review, int64, error) {
	filter := bson.M{"product": productID}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := p.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Review{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// RatingsForProduct returns the star rating of every current review of the
// product. It implements ratings.ReviewSource.
func (s *Store) RatingsForProduct(ctx context.Context, productID primitive.ObjectID) ([]int, error) {
	cur, err := s.c.Find(ctx, bson.M{"product": productID}, options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []int{}
	for cur.Next(ctx) {
		var row struct {
			Rating int `bson:"rating"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.Rating)
	}
	return out, cur.Err()
}

// Count returns the number of reviews.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
