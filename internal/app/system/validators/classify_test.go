package validators

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want serverErrKind
	}{
		{"namespace exists code", mongo.CommandError{Code: 48, Message: "x"}, errNamespaceExists},
		{"command not found code", mongo.CommandError{Code: 59, Message: "x"}, errUnsupported},
		{"not supported code", mongo.CommandError{Code: 115, Message: "x"}, errUnsupported},
		{"message only", errors.New("Feature not implemented: collMod"), errUnsupported},
		{"exists message only", errors.New("Collection already exists. NS: shop.users"), errNamespaceExists},
		{"unrelated", errors.New("connection reset"), errOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
