package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// catalog mirrors both sides of the relation in memory.
type catalog struct {
	products    map[primitive.ObjectID][]primitive.ObjectID
	collections map[primitive.ObjectID][]primitive.ObjectID
}

func newCatalog(cols ...primitive.ObjectID) *catalog {
	c := &catalog{
		products:    map[primitive.ObjectID][]primitive.ObjectID{},
		collections: map[primitive.ObjectID][]primitive.ObjectID{},
	}
	for _, id := range cols {
		c.collections[id] = nil
	}
	return c
}

func (c *catalog) AddProduct(_ context.Context, cols []primitive.ObjectID, pid primitive.ObjectID) error {
	for _, col := range cols {
		if !contains(c.collections[col], pid) {
			c.collections[col] = append(c.collections[col], pid)
		}
	}
	return nil
}

func (c *catalog) RemoveProduct(_ context.Context, cols []primitive.ObjectID, pid primitive.ObjectID) error {
	for _, col := range cols {
		c.collections[col] = without(c.collections[col], pid)
	}
	return nil
}

func (c *catalog) RemoveProductEverywhere(_ context.Context, pid primitive.ObjectID) error {
	for col := range c.collections {
		c.collections[col] = without(c.collections[col], pid)
	}
	return nil
}

// update mimics a product save followed by Sync.
func (c *catalog) update(t *testing.T, pid primitive.ObjectID, next []primitive.ObjectID) {
	t.Helper()
	prev := c.products[pid]
	c.products[pid] = Dedupe(next)
	require.NoError(t, Sync(context.Background(), c, pid, prev, next))
}

func (c *catalog) remove(t *testing.T, pid primitive.ObjectID) {
	t.Helper()
	delete(c.products, pid)
	require.NoError(t, Detach(context.Background(), c, pid))
}

// assertConsistent checks: pid ∈ collection.products ⇔ col ∈ product.collections.
func (c *catalog) assertConsistent(t *testing.T) {
	t.Helper()
	for col, pids := range c.collections {
		for _, pid := range pids {
			assert.True(t, contains(c.products[pid], col), "collection %s lists product %s which does not list it back", col.Hex(), pid.Hex())
		}
	}
	for pid, cols := range c.products {
		for _, col := range cols {
			assert.True(t, contains(c.collections[col], pid), "product %s lists collection %s which does not list it back", pid.Hex(), col.Hex())
		}
	}
}

func TestDiff(t *testing.T) {
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	added, removed := Diff([]primitive.ObjectID{a, b}, []primitive.ObjectID{b, c, c})

	assert.Equal(t, []primitive.ObjectID{c}, added)
	assert.Equal(t, []primitive.ObjectID{a}, removed)
}

func TestDiff_NoChange(t *testing.T) {
	a := primitive.NewObjectID()
	added, removed := Diff([]primitive.ObjectID{a}, []primitive.ObjectID{a})
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestSync_StaysConsistentAcrossUpdates(t *testing.T) {
	c1, c2, c3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	cat := newCatalog(c1, c2, c3)
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()

	cat.update(t, p1, []primitive.ObjectID{c1, c2})
	cat.update(t, p2, []primitive.ObjectID{c2})
	cat.assertConsistent(t)

	cat.update(t, p1, []primitive.ObjectID{c2, c3})
	cat.assertConsistent(t)
	assert.NotContains(t, cat.collections[c1], p1)

	cat.update(t, p2, nil)
	cat.assertConsistent(t)
	assert.Equal(t, []primitive.ObjectID{p1}, cat.collections[c2])

	cat.remove(t, p1)
	cat.assertConsistent(t)
	for col, pids := range cat.collections {
		assert.Empty(t, pids, "collection %s should be empty", col.Hex())
	}
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
