// internal/app/store/categories/categorystore.go
package categorystore

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
	ErrDuplicate     = errors.New("a category with this title or slug already exists")
	ErrTitleRequired = errors.New("title is required")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("categories")}
}

// List returns every category ordered by title.
func (s *Store) List(ctx context.Context) ([]models.Category, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID loads a category. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	var c models.Category
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	return c, err
}

// GetBySlug loads a category by slug.
func (s *Store) GetBySlug(ctx context.Context, sl string) (models.Category, error) {
	var c models.Category
	err := s.c.FindOne(ctx, bson.M{"slug": strings.ToLower(strings.TrimSpace(sl))}).Decode(&c)
	return c, err
}

// Search returns up to limit categories whose title contains q.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]models.Category, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Category{}, nil
	}
	cur, err := s.c.Find(ctx,
		bson.M{"title_ci": primitive.Regex{Pattern: regexp.QuoteMeta(text.Fold(q))}},
		options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a category, deriving the slug from the title when empty.
func (s *Store) Create(ctx context.Context, c models.Category) (models.Category, error) {
	if err := normalize(&c); err != nil {
		return models.Category{}, err
	}
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, ErrDuplicate
		}
		return models.Category{}, err
	}
	return c, nil
}

// Update overwrites the editable fields and returns the previous document so
// callers can carry a title rename onto products.
func (s *Store) Update(ctx context.Context, c models.Category) (before models.Category, err error) {
	if err := normalize(&c); err != nil {
		return models.Category{}, err
	}
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"title":       c.Title,
		"title_ci":    c.TitleCI,
		"slug":        c.Slug,
		"description": c.Description,
		"image":       c.Image,
		"updated_at":  time.Now().UTC(),
	}}, options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, ErrDuplicate
		}
		return models.Category{}, err
	}
	return before, nil
}

// Delete removes a category and returns it.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	var c models.Category
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&c)
	return c, err
}

func normalize(c *models.Category) error {
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
