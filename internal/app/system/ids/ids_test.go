package ids

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParse(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	got, err := Parse([]string{a.Hex(), " ", b.Hex(), a.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{a, b}, got)

	_, err = Parse([]string{a.Hex(), "nope"})
	assert.ErrorContains(t, err, `"nope"`)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, SplitCSV("  "))
	assert.Equal(t, []string{"a", "b", "c"}, SplitCSV("a, b,,c ,"))
}

func TestParam(t *testing.T) {
	id := primitive.NewObjectID()
	r := testutil.WithChiURLParam(httptest.NewRequest("GET", "/", nil), "id", id.Hex())
	got, ok := Param(r, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	r = testutil.WithChiURLParam(httptest.NewRequest("GET", "/", nil), "id", "bad")
	_, ok = Param(r, "id")
	assert.False(t, ok)
}
