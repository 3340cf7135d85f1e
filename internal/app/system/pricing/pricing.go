// Package pricing computes cart and order money amounts.
//
// Two computations live here and they intentionally differ:
//
//   - OrderTotals is authoritative. It is what checkout persists on the order:
//     subtotal + shipping(subtotal) + tax(subtotal). No discount.
//   - Quote is the cart summary shown before checkout. It applies an optional
//     promo code and taxes the discounted subtotal.
//
// Promo codes are never carried onto the order, so a quoted total and the
// persisted order total can differ when a code is applied.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one priced cart or order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Config holds the shipping and tax rules.
type Config struct {
	FlatShipping     decimal.Decimal // charged when subtotal is at or under FreeShippingOver
	FreeShippingOver decimal.Decimal // strictly greater subtotals ship free
	TaxRate          decimal.Decimal // fraction, e.g. 0.08
}

// DefaultConfig is $10 flat shipping, free over $100, 8% tax.
func DefaultConfig() Config {
	return Config{
		FlatShipping:     decimal.NewFromInt(10),
		FreeShippingOver: decimal.NewFromInt(100),
		TaxRate:          decimal.RequireFromString("0.08"),
	}
}

// promoCodes maps upper-cased codes to percentage off.
var promoCodes = map[string]int64{
	"SAVE10":    10,
	"SAVE20":    20,
	"WELCOME15": 15,
}

// PromoPercent returns the percentage for code. Matching is case-insensitive
// and exact; surrounding whitespace is ignored.
func PromoPercent(code string) (int64, bool) {
	pct, ok := promoCodes[strings.ToUpper(strings.TrimSpace(code))]
	return pct, ok
}

// Totals is the authoritative order money breakdown.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Quote is the cart summary breakdown.
type Quote struct {
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Discount     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	PromoCode    string // normalized code, empty when not applied
	PromoApplied bool
}

// Subtotal returns Σ unit price × quantity.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return cents(sum)
}

// Shipping is free when subtotal exceeds the threshold, otherwise flat.
func (c Config) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(c.FreeShippingOver) {
		return decimal.Zero
	}
	return cents(c.FlatShipping)
}

// Tax applies the configured rate to base.
func (c Config) Tax(base decimal.Decimal) decimal.Decimal {
	return cents(base.Mul(c.TaxRate))
}

// OrderTotals computes the amounts persisted on an order at creation.
func (c Config) OrderTotals(lines []Line) Totals {
	sub := Subtotal(lines)
	ship := c.Shipping(sub)
	tax := c.Tax(sub)
	return Totals{
		Subtotal: sub,
		Shipping: ship,
		Tax:      tax,
		Total:    sub.Add(ship).Add(tax),
	}
}

// Quote computes the cart summary with an optional promo code. An unknown
// code yields no discount and PromoApplied=false.
func (c Config) Quote(lines []Line, promo string) Quote {
	sub := Subtotal(lines)
	q := Quote{
		Subtotal: sub,
		Shipping: c.Shipping(sub),
		Discount: decimal.Zero,
	}
	if pct, ok := PromoPercent(promo); ok {
		q.Discount = cents(sub.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)))
		q.PromoCode = strings.ToUpper(strings.TrimSpace(promo))
		q.PromoApplied = true
	}
	q.Tax = c.Tax(sub.Sub(q.Discount))
	q.Total = sub.Add(q.Shipping).Add(q.Tax).Sub(q.Discount)
	return q
}

func cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Cents converts a stored price to a decimal rounded to whole cents. Every
// amount that reaches an order or a payment session goes through it, so the
// charged lines always add up to the order total.
func Cents(f float64) decimal.Decimal { return cents(decimal.NewFromFloat(f)) }

// Float converts an amount for storage and JSON.
func Float(d decimal.Decimal) float64 { return d.InexactFloat64() }
