// Package orderflow defines the order status machine:
//
//	pending ──► paid ──► shipped ──► delivered
//	   │          │
//	   └──────────┴──► cancelled
package orderflow

import (
	"errors"
	"fmt"

	"github.com/dalemusser/storefront/internal/domain/models"
)

// ErrInvalidTransition wraps every error returned by Check.
var ErrInvalidTransition = errors.New("invalid order status change")

var transitions = map[string][]string{
	models.OrderPending:   {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:      {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:   {models.OrderDelivered},
	models.OrderDelivered: nil,
	models.OrderCancelled: nil,
}

// Statuses lists every status in lifecycle order.
func Statuses() []string {
	return []string{models.OrderPending, models.OrderPaid, models.OrderShipped, models.OrderDelivered, models.OrderCancelled}
}

// Valid reports whether s is a known status.
func Valid(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to string) bool {
	if !Valid(from) || !Valid(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check is CanTransition returning a descriptive error.
func Check(from, to string) error {
	if !Valid(to) {
		return fmt.Errorf("%w: unknown order status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Terminal reports whether no further transitions are possible.
func Terminal(s string) bool { return Valid(s) && len(transitions[s]) == 0 }
