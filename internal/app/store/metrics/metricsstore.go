package metricsstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals shown on the admin dashboard.
type Counts struct {
	Products    int64 `json:"products"`
	Categories  int64 `json:"categories"`
	Collections int64 `json:"collections"`
	Orders      int64 `json:"orders"`
	Users       int64 `json:"users"`
	Admins      int64 `json:"admins"`
	Reviews     int64 `json:"reviews"`
}

// FetchDashboardCounts returns the high-level counts used by the dashboard.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	count := func(coll string, filter bson.M, dst *int64) {
		if n, err := db.Collection(coll).CountDocuments(ctx, filter); err == nil {
			*dst = n
		}
	}

	count("products", bson.M{}, &out.Products)
	count("categories", bson.M{}, &out.Categories)
	count("collections", bson.M{}, &out.Collections)
	count("orders", bson.M{}, &out.Orders)
	count("users", bson.M{}, &out.Users)
	count("users", bson.M{"role": "admin"}, &out.Admins)
	count("reviews", bson.M{}, &out.Reviews)

	return out
}
