// internal/app/store/collections/collectionstore.go
package collectionstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/slug"
	"github.com/dalemusser/storefront/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrDuplicate is returned when the title or slug is already in use.
	ErrDuplicate     = errors.New("a collection with this title or slug already exists")
	ErrTitleRequired = errors.New("title is required")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("collections")}
}

// List returns every collection ordered by title.
func (s *Store) List(ctx context.Context) ([]models.Collection, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}}))
}

// GetByID loads a collection. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Collection, error) {
	var c models.Collection
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	return c, err
}

// GetBySlug loads a collection by slug.
func (s *Store) GetBySlug(ctx context.Context, sl string) (models.Collection, error) {
	var c models.Collection
	err := s.c.FindOne(ctx, bson.M{"slug": strings.ToLower(strings.TrimSpace(sl))}).Decode(&c)
	return c, err
}

// Search returns up to limit collections whose title contains q.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]models.Collection, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Collection{}, nil
	}
	return s.find(ctx,
		bson.M{"title_ci": primitive.Regex{Pattern: regexp.QuoteMeta(text.Fold(q))}},
		options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}}).SetLimit(int64(limit)),
	)
}

// ExistingIDs returns the subset of ids that name a collection, deduplicated
// and in input order.
func (s *Store) ExistingIDs(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(ids) == 0 {
		return []primitive.ObjectID{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	found := map[primitive.ObjectID]bool{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		found[row.ID] = true
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	out := make([]primitive.ObjectID, 0, len(found))
	for _, id := range ids {
		if found[id] {
			out = append(out, id)
			delete(found, id)
		}
	}
	return out, nil
}

// Create inserts a collection with an empty product list. Membership is only
// ever written from the product side.
func (s *Store) Create(ctx context.Context, c models.Collection) (models.Collection, error) {
	if err := normalize(&c); err != nil {
		return models.Collection{}, err
	}
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.Products = []primitive.ObjectID{}
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Collection{}, ErrDuplicate
		}
		return models.Collection{}, err
	}
	return c, nil
}

// Update overwrites the descriptive fields. The products array is untouched.
func (s *Store) Update(ctx context.Context, c models.Collection) error {
	if err := normalize(&c); err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"title":       c.Title,
		"title_ci":    c.TitleCI,
		"slug":        c.Slug,
		"description": c.Description,
		"image":       c.Image,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a collection and returns it.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Collection, error) {
	var c models.Collection
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&c)
	return c, err
}

// AddProduct adds productID to each collection. It implements membership.Writer.
func (s *Store) AddProduct(ctx context.Context, collectionIDs []primitive.ObjectID, productID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": collectionIDs}},
		bson.M{"$addToSet": bson.M{"products": productID}},
	)
	return err
}

// RemoveProduct pulls productID from each collection. It implements membership.Writer.
func (s *Store) RemoveProduct(ctx context.Context, collectionIDs []primitive.ObjectID, productID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": collectionIDs}},
		bson.M{"$pull": bson.M{"products": productID}},
	)
	return err
}

// RemoveProductEverywhere pulls productID from every collection that holds it.
// It implements membership.Writer.
func (s *Store) RemoveProductEverywhere(ctx context.Context, productID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"products": productID},
		bson.M{"$pull": bson.M{"products": productID}},
	)
	return err
}

// SetProducts replaces a collection's products array. Used by the reconciler
// to rebuild membership from the product side. It reports whether the stored
// array changed.
func (s *Store) SetProducts(ctx context.Context, id primitive.ObjectID, products []primitive.ObjectID) (bool, error) {
	if products == nil {
		products = []primitive.ObjectID{}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"products": products}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Count returns the number of collections.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, filter any, opts *options.FindOptions) ([]models.Collection, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Collection{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalize(c *models.Collection) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return ErrTitleRequired
	}
	c.TitleCI = text.Fold(c.Title)
	c.Slug = strings.ToLower(strings.TrimSpace(c.Slug))
	if c.Slug == "" {
		c.Slug = slug.Make(c.Title)
	}
	c.Description = strings.TrimSpace(c.Description)
	return nil
}
