// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/storefront/internal/app/system/orderflow"
	"github.com/dalemusser/storefront/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll makes sure every storefront collection exists and carries its
// JSON-Schema validator. Deployments without collMod (DocumentDB and some
// emulators) keep their collections but run unvalidated.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		// Listing is an optimisation; create-and-ignore-duplicate still works.
		existing = nil
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var problems []string
	for _, spec := range collectionSpecs() {
		if err := ensureOne(ctx, db, spec, have[spec.name]); err != nil {
			problems = append(problems, spec.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type collectionSpec struct {
	name   string
	schema bson.M // nil means no validator
}

func collectionSpecs() []collectionSpec {
	categoryLike := titledSchema()
	return []collectionSpec{
		{"products", productsSchema()},
		{"categories", categoryLike},
		{"collections", categoryLike},
		{"users", usersSchema()},
		{"orders", ordersSchema()},
		{"reviews", reviewsSchema()},
		{"oauth_states", nil},
	}
}

func ensureOne(ctx context.Context, db *mongo.Database, spec collectionSpec, exists bool) error {
	log := zap.L().With(zap.String("collection", spec.name))
	if !exists {
		err := db.CreateCollection(ctx, spec.name)
		switch {
		case err == nil:
			log.Info("created collection")
		case classify(err) == errNamespaceExists:
			// lost a race with another instance
		default:
			return err
		}
	}
	if spec.schema == nil {
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: spec.name},
		{Key: "validator", Value: spec.schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		if classify(err) == errUnsupported {
			log.Info("collection validator unsupported by server; skipped")
			return nil
		}
		return err
	}
	log.Debug("collection validator applied")
	return nil
}

type serverErrKind int

const (
	errOther serverErrKind = iota
	errNamespaceExists
	errUnsupported
)

// Server error codes: 48 NamespaceExists, 59 CommandNotFound, 115 CommandNotSupported.
var errCodes = map[int32]serverErrKind{
	48:  errNamespaceExists,
	59:  errUnsupported,
	115: errUnsupported,
}

var errPhrases = []struct {
	phrase string
	kind   serverErrKind
}{
	{"already exists", errNamespaceExists},
	{"namespace exists", errNamespaceExists},
	{"no such command", errUnsupported},
	{"not implemented", errUnsupported},
	{"not supported", errUnsupported},
}

// classify maps a server error onto the cases EnsureAll tolerates. Codes win;
// message matching covers servers that omit them.
func classify(err error) serverErrKind {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if k, ok := errCodes[ce.Code]; ok {
			return k
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range errPhrases {
		if strings.Contains(msg, p.phrase) {
			return p.kind
		}
	}
	return errOther
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "email_ci", "role"},
			"properties": bson.M{
				"name":          bson.M{"bsonType": "string"},
				"email":         nonBlank,
				"email_ci":      nonBlank,
				"password_hash": bson.M{"bsonType": "string"},
				"role":          bson.M{"enum": bson.A{models.RoleUser, models.RoleAdmin}},
				"wishlist":      bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}

func productsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "slug", "price", "inventory"},
			"properties": bson.M{
				"title":         nonBlank,
				"slug":          nonBlank,
				"price":         bson.M{"bsonType": "number", "minimum": 0},
				"compare_price": bson.M{"bsonType": "number", "minimum": 0},
				"inventory":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"collections":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"rating": bson.M{
					"bsonType": "object",
					"properties": bson.M{
						"average": bson.M{"bsonType": "number", "minimum": 0, "maximum": 5},
						"count":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
					},
				},
			},
		},
	}
}

// titledSchema covers categories and collections.
func titledSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "title_ci", "slug"},
			"properties": bson.M{
				"title":    nonBlank,
				"title_ci": nonBlank,
				"slug":     nonBlank,
			},
		},
	}
}

func ordersSchema() bson.M {
	statuses := bson.A{}
	for _, s := range orderflow.Statuses() {
		statuses = append(statuses, s)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user", "items", "subtotal", "shipping", "tax", "total", "status"},
			"properties": bson.M{
				"user":     bson.M{"bsonType": "objectId"},
				"items":    bson.M{"bsonType": "array", "minItems": 1},
				"subtotal": bson.M{"bsonType": "number", "minimum": 0},
				"shipping": bson.M{"bsonType": "number", "minimum": 0},
				"tax":      bson.M{"bsonType": "number", "minimum": 0},
				"total":    bson.M{"bsonType": "number", "minimum": 0},
				"status":   bson.M{"enum": statuses},
			},
		},
	}
}

func reviewsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user", "product", "rating"},
			"properties": bson.M{
				"user":    bson.M{"bsonType": "objectId"},
				"product": bson.M{"bsonType": "objectId"},
				"rating":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 5},
				"comment": bson.M{"bsonType": "string", "maxLength": 2000},
			},
		},
	}
}
