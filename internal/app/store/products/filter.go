package productstore

import (
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sort keys accepted by List.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortTitle     = "title"
)

// SortSpec maps a sort key to a Mongo sort document. Unknown keys sort newest
// first. _id is the final tie-breaker so pages are stable.
func SortSpec(key string) bson.D {
	switch key {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case SortRating:
		return bson.D{{Key: "rating.average", Value: -1}, {Key: "rating.count", Value: -1}, {Key: "_id", Value: 1}}
	case SortTitle:
		return bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	Category     string
	CollectionID *primitive.ObjectID
	MinPrice     *float64
	MaxPrice     *float64
	MinRating    *float64
	Tags         []string // any-of
	Size         string
	Color        string
	Query        string // title, description, tags
	Featured     *bool
}

// BSON builds the Mongo filter document.
func (f Filter) BSON() bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.CollectionID != nil {
		q["collections"] = *f.CollectionID
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}
	if f.MinRating != nil {
		q["rating.average"] = bson.M{"$gte": *f.MinRating}
	}
	if tags := cleanList(f.Tags); len(tags) > 0 {
		q["tags"] = bson.M{"$in": tags}
	}
	if f.Size != "" {
		q["sizes"] = ciRegexExact(f.Size)
	}
	if f.Color != "" {
		q["colors"] = ciRegexExact(f.Color)
	}
	if f.Featured != nil {
		q["featured"] = *f.Featured
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q["$or"] = bson.A{
			bson.M{"title_ci": primitive.Regex{Pattern: regexp.QuoteMeta(text.Fold(s))}},
			bson.M{"description": ciRegex(s)},
			bson.M{"tags": ciRegex(s)},
		}
	}
	return q
}

func ciRegexExact(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}
