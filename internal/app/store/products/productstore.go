// internal/app/store/products/productstore.go
package productstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
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
	ErrDuplicateSlug = errors.New("a product with this slug already exists")
	ErrTitleRequired = errors.New("title is required")
	ErrNegativePrice = errors.New("price must not be negative")
)

// maxSlugAttempts bounds the -2, -3, ... suffix search.
const maxSlugAttempts = 50

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("products")}
}

// GetByID loads a product. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

// GetBySlug loads a product by its URL slug.
func (s *Store) GetBySlug(ctx context.Context, sl string) (models.Product, error) {
	var p models.Product
	err := s.c.FindOne(ctx, bson.M{"slug": strings.ToLower(strings.TrimSpace(sl))}).Decode(&p)
	return p, err
}

// GetMany loads the products with the given ids, keyed by id. Unknown ids are
// simply absent from the map.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var p models.Product
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, cur.Err()
}

// InOrder returns the products for ids in the order given, skipping unknown ids.
func (s *Store) InOrder(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	byID, err := s.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Create inserts a product. An empty slug is derived from the title and made
// unique with a numeric suffix; an explicit slug that is taken fails with
// ErrDuplicateSlug.
func (s *Store) Create(ctx context.Context, p models.Product) (models.Product, error) {
	if err := normalize(&p); err != nil {
		return models.Product{}, err
	}
	if p.Slug == "" {
		sl, err := s.availableSlug(ctx, slug.Make(p.Title), primitive.NilObjectID)
		if err != nil {
			return models.Product{}, err
		}
		p.Slug = sl
	}

	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Rating = models.Rating{}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Product{}, ErrDuplicateSlug
		}
		return models.Product{}, err
	}
	return p, nil
}

// Update overwrites the editable fields of p.ID and returns the document as it
// was before the update so callers can diff collection membership. Rating and
// CreatedAt are never changed here.
func (s *Store) Update(ctx context.Context, p models.Product) (before models.Product, err error) {
	if err := normalize(&p); err != nil {
		return models.Product{}, err
	}
	if p.Slug == "" {
		sl, err := s.availableSlug(ctx, slug.Make(p.Title), p.ID)
		if err != nil {
			return models.Product{}, err
		}
		p.Slug = sl
	}

	set := bson.M{
		"title":         p.Title,
		"title_ci":      p.TitleCI,
		"slug":          p.Slug,
		"description":   p.Description,
		"price":         p.Price,
		"compare_price": p.ComparePrice,
		"images":        p.Images,
		"category":      p.Category,
		"tags":          p.Tags,
		"sizes":         p.Sizes,
		"colors":        p.Colors,
		"collections":   p.Collections,
		"inventory":     p.Inventory,
		"featured":      p.Featured,
		"updated_at":    time.Now().UTC(),
	}
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Product{}, ErrDuplicateSlug
		}
		return models.Product{}, err
	}
	return before, nil
}

// Delete removes a product and returns the deleted document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

// SetRating stores the recomputed review aggregate. It implements ratings.RatingSink.
func (s *Store) SetRating(ctx context.Context, id primitive.ObjectID, r models.Rating) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"rating.average": r.Average,
		"rating.count":   r.Count,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DecrementStock subtracts each item's quantity from inventory, flooring at
// zero. It runs once per paid order.
func (s *Store) DecrementStock(ctx context.Context, items []models.OrderItem) error {
	for _, it := range items {
		_, err := s.c.UpdateOne(ctx, bson.M{"_id": it.Product}, mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"inventory": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$inventory", it.Quantity}}}},
			}}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// PullCollection removes a deleted collection from every product.
func (s *Store) PullCollection(ctx context.Context, collectionID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"collections": collectionID},
		bson.M{"$pull": bson.M{"collections": collectionID}},
	)
	return err
}

// IDsInCollection returns the ids of every product that lists collectionID.
func (s *Store) IDsInCollection(ctx context.Context, collectionID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return s.ids(ctx, bson.M{"collections": collectionID})
}

// AllIDs returns every product id.
func (s *Store) AllIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return s.ids(ctx, bson.M{})
}

func (s *Store) ids(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []primitive.ObjectID{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.ID)
	}
	return out, cur.Err()
}

// RenameCategory moves every product in category from to category to.
func (s *Store) RenameCategory(ctx context.Context, from, to string) (int64, error) {
	if from == to {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"category": from},
		bson.M{"$set": bson.M{"category": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountInCategory returns how many products reference category.
func (s *Store) CountInCategory(ctx context.Context, category string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"category": category})
}

// List returns one page of products matching f, ordered by sort.
func (s *Store) List(ctx context.Context, f Filter, sort string, p paging.Page) ([]models.Product, int64, error) {
	filter := f.BSON()
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := p.ApplyToFind(options.Find().SetSort(SortSpec(sort)))
	items, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Featured returns up to limit featured products, newest first.
func (s *Store) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	opts := options.Find().SetSort(SortSpec(SortNewest)).SetLimit(int64(limit))
	return s.find(ctx, bson.M{"featured": true}, opts)
}

// Related returns up to limit other products in p's category.
func (s *Store) Related(ctx context.Context, p models.Product, limit int) ([]models.Product, error) {
	if p.Category == "" {
		return []models.Product{}, nil
	}
	opts := options.Find().SetSort(SortSpec(SortRating)).SetLimit(int64(limit))
	return s.find(ctx, bson.M{"category": p.Category, "_id": bson.M{"$ne": p.ID}}, opts)
}

// Search returns up to limit products whose title, description or tags match q.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]models.Product, error) {
	if strings.TrimSpace(q) == "" {
		return []models.Product{}, nil
	}
	opts := options.Find().SetSort(SortSpec(SortRating)).SetLimit(int64(limit))
	return s.find(ctx, Filter{Query: q}.BSON(), opts)
}

// LowStock returns up to limit products with inventory at or below threshold.
func (s *Store) LowStock(ctx context.Context, threshold, limit int) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "inventory", Value: 1}, {Key: "title_ci", Value: 1}}).
		SetLimit(int64(limit))
	return s.find(ctx, bson.M{"inventory": bson.M{"$lte": threshold}}, opts)
}

// Count returns the number of products.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, filter any, opts *options.FindOptions) ([]models.Product, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// availableSlug returns base, or base-N for the first N not used by a product
// other than self.
func (s *Store) availableSlug(ctx context.Context, base string, self primitive.ObjectID) (string, error) {
	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := slug.WithSuffix(base, n)
		filter := bson.M{"slug": candidate}
		if !self.IsZero() {
			filter["_id"] = bson.M{"$ne": self}
		}
		count, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", ErrDuplicateSlug
}

func normalize(p *models.Product) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return ErrTitleRequired
	}
	if p.Price < 0 || p.ComparePrice < 0 {
		return ErrNegativePrice
	}
	p.Price = pricing.Float(pricing.Cents(p.Price))
	p.ComparePrice = pricing.Float(pricing.Cents(p.ComparePrice))
	if p.Inventory < 0 {
		p.Inventory = 0
	}
	p.TitleCI = text.Fold(p.Title)
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
	p.Category = strings.TrimSpace(p.Category)
	p.Images = nonNil(p.Images)
	p.Tags = cleanList(p.Tags)
	p.Sizes = cleanList(p.Sizes)
	p.Colors = cleanList(p.Colors)
	if p.Collections == nil {
		p.Collections = []primitive.ObjectID{}
	}
	return nil
}

// cleanList trims entries and drops blanks and duplicates.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func ciRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
