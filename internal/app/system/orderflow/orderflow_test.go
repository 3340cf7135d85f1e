package orderflow

import (
	"testing"

	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.OrderPending, models.OrderPaid, true},
		{models.OrderPending, models.OrderCancelled, true},
		{models.OrderPending, models.OrderShipped, false},
		{models.OrderPaid, models.OrderShipped, true},
		{models.OrderPaid, models.OrderCancelled, true},
		{models.OrderShipped, models.OrderDelivered, true},
		{models.OrderShipped, models.OrderCancelled, false},
		{models.OrderDelivered, models.OrderPending, false},
		{models.OrderCancelled, models.OrderPaid, false},
		{models.OrderPaid, models.OrderPaid, true},
		{"bogus", models.OrderPaid, false},
		{models.OrderPaid, "bogus", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(models.OrderPending, models.OrderPaid))
	err := Check(models.OrderPending, "lost")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorContains(t, err, `unknown order status "lost"`)
	err = Check(models.OrderDelivered, models.OrderCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorContains(t, err, "cannot move order from delivered to cancelled")
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(models.OrderDelivered))
	assert.True(t, Terminal(models.OrderCancelled))
	assert.False(t, Terminal(models.OrderPending))
	assert.Len(t, Statuses(), 5)
}
