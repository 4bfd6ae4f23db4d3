package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func twoBurgers() []CartLine {
	return []CartLine{{ID: "l1", ItemID: "burger", Quantity: 2, UnitPrice: decimal.RequireFromString("7.99")}}
}

func TestSummarize_ReferenceOrder(t *testing.T) {
	p := Summarize(twoBurgers(), DefaultFeeSchedule(), DefaultTipPercent, decimal.Zero)

	assert.Equal(t, "15.98", p.Subtotal.String())
	assert.Equal(t, "1.2784", p.Tax.String())
	assert.Equal(t, "2.99", p.DeliveryFee.String())
	assert.Equal(t, "2.397", p.Tip.String())
	assert.Equal(t, "22.6454", p.Total.String())
	assert.Equal(t, "22.65", p.Rounded().Total.StringFixed(2))
}

func TestSummarize_Discount(t *testing.T) {
	promo := DefaultPromoRule()
	discount := promo.Discount(Subtotal(twoBurgers()))

	p := Summarize(twoBurgers(), DefaultFeeSchedule(), 0, discount)

	assert.Equal(t, "1.598", p.Discount.String())
	assert.Equal(t, "18.6504", p.Total.String())
}

func TestSummarize_EmptyCart(t *testing.T) {
	p := Summarize(nil, DefaultFeeSchedule(), 20, decimal.Zero)

	assert.True(t, p.Subtotal.IsZero())
	assert.True(t, p.Tip.IsZero())
	assert.Equal(t, "2.99", p.Total.String())
}

func TestRounded_HalfAwayFromZero(t *testing.T) {
	p := PricingSummary{Tax: decimal.RequireFromString("1.005"), Tip: decimal.RequireFromString("2.397")}.Rounded()

	assert.Equal(t, "1.01", p.Tax.StringFixed(2))
	assert.Equal(t, "2.40", p.Tip.StringFixed(2))
}

func TestValidTipPercent(t *testing.T) {
	for _, p := range TipPercentages {
		assert.True(t, ValidTipPercent(p))
	}
	assert.False(t, ValidTipPercent(17))
	assert.False(t, ValidTipPercent(-10))
}

func TestReview(t *testing.T) {
	d := DeliveryDetails{Address: "1 Main St", Phone: "5551234567", RequestedTime: RequestedTimeASAP}
	r := Review(twoBurgers(), d, DefaultFeeSchedule(), DefaultTipPercent, decimal.Zero)

	assert.Equal(t, d, r.Delivery)
	assert.Len(t, r.Lines, 1)
	assert.Equal(t, "22.6454", r.Pricing.Total.String())
}
