// Package membership keeps Product.collections and Collection.products in
// step. A product id is in a collection's products array iff that collection
// id is in the product's collections array.
package membership

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Writer mutates the collection side of the relation.
type Writer interface {
	AddProduct(ctx context.Context, collectionIDs []primitive.ObjectID, productID primitive.ObjectID) error
	RemoveProduct(ctx context.Context, collectionIDs []primitive.ObjectID, productID primitive.ObjectID) error
	RemoveProductEverywhere(ctx context.Context, productID primitive.ObjectID) error
}

// Diff returns the ids present only in next (added) and only in prev (removed).
// Duplicates are collapsed; output order follows input order.
func Diff(prev, next []primitive.ObjectID) (added, removed []primitive.ObjectID) {
	inPrev := toSet(prev)
	inNext := toSet(next)
	added = onlyIn(next, inPrev)
	removed = onlyIn(prev, inNext)
	return added, removed
}

// Sync pushes productID into newly added collections and pulls it from removed ones.
func Sync(ctx context.Context, w Writer, productID primitive.ObjectID, prev, next []primitive.ObjectID) error {
	added, removed := Diff(prev, next)
	if len(added) > 0 {
		if err := w.AddProduct(ctx, added, productID); err != nil {
			return fmt.Errorf("add to collections: %w", err)
		}
	}
	if len(removed) > 0 {
		if err := w.RemoveProduct(ctx, removed, productID); err != nil {
			return fmt.Errorf("remove from collections: %w", err)
		}
	}
	return nil
}

// Detach pulls productID out of every collection that references it.
func Detach(ctx context.Context, w Writer, productID primitive.ObjectID) error {
	if err := w.RemoveProductEverywhere(ctx, productID); err != nil {
		return fmt.Errorf("detach product: %w", err)
	}
	return nil
}

// Dedupe returns ids with duplicates removed, preserving order.
func Dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	return onlyIn(ids, nil)
}

func toSet(ids []primitive.ObjectID) map[primitive.ObjectID]struct{} {
	s := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func onlyIn(ids []primitive.ObjectID, exclude map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, skip := exclude[id]; skip {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
