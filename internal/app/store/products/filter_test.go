package productstore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterBSON_Empty(t *testing.T) {
	if got := (Filter{}).BSON(); len(got) != 0 {
		t.Errorf("empty filter = %v, want {}", got)
	}
}

func TestFilterBSON_PriceRange(t *testing.T) {
	lo, hi := 10.0, 50.0
	got := Filter{MinPrice: &lo, MaxPrice: &hi}.BSON()
	price, ok := got["price"].(bson.M)
	if !ok {
		t.Fatalf("price clause missing: %v", got)
	}
	if price["$gte"] != 10.0 || price["$lte"] != 50.0 {
		t.Errorf("price clause = %v", price)
	}
}

func TestSortSpec(t *testing.T) {
	tests := []struct {
		key   string
		field string
		dir   int
	}{
		{SortPriceAsc, "price", 1},
		{SortPriceDesc, "price", -1},
		{SortRating, "rating.average", -1},
		{SortTitle, "title_ci", 1},
		{SortNewest, "created_at", -1},
		{"bogus", "created_at", -1},
	}
	for _, tt := range tests {
		got := SortSpec(tt.key)
		if got[0].Key != tt.field || got[0].Value != tt.dir {
			t.Errorf("SortSpec(%q)[0] = %v, want %s:%d", tt.key, got[0], tt.field, tt.dir)
		}
	}
}
