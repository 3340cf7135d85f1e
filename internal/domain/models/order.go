// internal/domain/models/order.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// OrderItem is a priced line captured at checkout time.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Title    string             `bson:"title" json:"title"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"`
}

// ShippingAddress is where the order ships.
type ShippingAddress struct {
	FullName   string `bson:"full_name" json:"full_name" validate:"required,max=120"`
	Line1      string `bson:"line1" json:"line1" validate:"required,max=200"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty" validate:"max=200"`
	City       string `bson:"city" json:"city" validate:"required,max=100"`
	State      string `bson:"state,omitempty" json:"state,omitempty" validate:"max=100"`
	PostalCode string `bson:"postal_code" json:"postal_code" validate:"required,max=20"`
	Country    string `bson:"country" json:"country" validate:"required,len=2"`
}

// Order is a checkout. Subtotal, Shipping, Tax and Total are computed once at
// creation and never recomputed.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID `bson:"user" json:"user"`
	Items            []OrderItem        `bson:"items" json:"items"`
	Subtotal         float64            `bson:"subtotal" json:"subtotal"`
	Shipping         float64            `bson:"shipping" json:"shipping"`
	Tax              float64            `bson:"tax" json:"tax"`
	Total            float64            `bson:"total" json:"total"`
	Status           string             `bson:"status" json:"status"`
	ShippingAddress  ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod    string             `bson:"payment_method" json:"payment_method"`
	PaymentSessionID string             `bson:"payment_session_id,omitempty" json:"payment_session_id,omitempty"`
	PaidAt           *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
