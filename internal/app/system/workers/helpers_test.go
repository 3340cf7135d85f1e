package workers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSameMembers(t *testing.T) {
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	tests := []struct {
		name string
		x, y []primitive.ObjectID
		want bool
	}{
		{"both empty", nil, []primitive.ObjectID{}, true},
		{"same order", []primitive.ObjectID{a, b}, []primitive.ObjectID{a, b}, true},
		{"different order", []primitive.ObjectID{a, b}, []primitive.ObjectID{b, a}, true},
		{"extra on right", []primitive.ObjectID{a}, []primitive.ObjectID{a, c}, false},
		{"extra on left", []primitive.ObjectID{a, c}, []primitive.ObjectID{a}, false},
	}
	for _, tt := range tests {
		if got := sameMembers(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: sameMembers = %v, want %v", tt.name, got, tt.want)
		}
	}
}
