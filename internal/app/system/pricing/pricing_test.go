package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrderTotals_OverFreeShippingThreshold(t *testing.T) {
	cfg := DefaultConfig()

	got := cfg.OrderTotals([]Line{{UnitPrice: d("120"), Quantity: 1}})

	assert.True(t, got.Subtotal.Equal(d("120")), "subtotal %s", got.Subtotal)
	assert.True(t, got.Shipping.IsZero(), "shipping %s", got.Shipping)
	assert.True(t, got.Tax.Equal(d("9.60")), "tax %s", got.Tax)
	assert.True(t, got.Total.Equal(d("129.60")), "total %s", got.Total)
}

func TestOrderTotals_FlatShippingAtOrUnderThreshold(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		lines []Line
		total string
	}{
		{"exactly at threshold", []Line{{UnitPrice: d("50"), Quantity: 2}}, "118.00"},
		{"small cart", []Line{{UnitPrice: d("19.99"), Quantity: 1}}, "31.59"},
		{"empty cart", nil, "10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.OrderTotals(tt.lines)
			assert.True(t, got.Shipping.Equal(d("10")), "shipping %s", got.Shipping)
			assert.True(t, got.Total.Equal(d(tt.total)), "total %s, want %s", got.Total, tt.total)
		})
	}
}

func TestOrderTotals_EqualsSumOfParts(t *testing.T) {
	cfg := DefaultConfig()
	lines := []Line{
		{UnitPrice: d("12.50"), Quantity: 3},
		{UnitPrice: d("7.25"), Quantity: 2},
		{UnitPrice: d("60"), Quantity: 1},
	}

	got := cfg.OrderTotals(lines)

	require.True(t, got.Subtotal.Equal(d("112.00")))
	want := got.Subtotal.Add(cfg.Shipping(got.Subtotal)).Add(cfg.Tax(got.Subtotal))
	assert.True(t, got.Total.Equal(want), "total %s, want %s", got.Total, want)
}

func TestQuote_PromoCode(t *testing.T) {
	cfg := DefaultConfig()
	lines := []Line{{UnitPrice: d("200"), Quantity: 1}}

	q := cfg.Quote(lines, "save10")

	require.True(t, q.PromoApplied)
	assert.Equal(t, "SAVE10", q.PromoCode)
	assert.True(t, q.Discount.Equal(d("20")), "discount %s", q.Discount)
	assert.True(t, q.Tax.Equal(d("14.40")), "tax %s", q.Tax)
	assert.True(t, q.Total.Equal(d("194.40")), "total %s", q.Total)
}

func TestQuote_UnknownPromoCodeIsNotApplied(t *testing.T) {
	cfg := DefaultConfig()
	lines := []Line{{UnitPrice: d("200"), Quantity: 1}}

	q := cfg.Quote(lines, "FREESTUFF")

	assert.False(t, q.PromoApplied)
	assert.Empty(t, q.PromoCode)
	assert.True(t, q.Discount.IsZero())
	assert.True(t, q.Total.Equal(cfg.OrderTotals(lines).Total))
}

func TestQuote_PromoIsExactMatchOnly(t *testing.T) {
	_, ok := PromoPercent("SAVE10X")
	assert.False(t, ok)
	_, ok = PromoPercent(" Save20 ")
	assert.True(t, ok)
}

func TestOrderTotals_CustomConfig(t *testing.T) {
	cfg := Config{FlatShipping: d("5"), FreeShippingOver: d("50"), TaxRate: d("0.1")}
	got := cfg.OrderTotals([]Line{{UnitPrice: d("40"), Quantity: 1}})
	assert.True(t, got.Total.Equal(d("49")), "total %s", got.Total)
}

func TestCents(t *testing.T) {
	assert.True(t, Cents(0.125).Equal(d("0.13")))
	assert.True(t, Cents(19.99).Equal(d("19.99")))
	assert.True(t, Cents(2.005).Equal(d("2.01")))
	assert.True(t, Cents(0).IsZero())
}
