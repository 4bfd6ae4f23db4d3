package domain

import "github.com/shopspring/decimal"

const DefaultTipPercent = 15

var TipPercentages = []int{0, 10, 15, 20, 25}

func ValidTipPercent(p int) bool {
	for _, v := range TipPercentages {
		if v == p {
			return true
		}
	}
	return false
}

type FeeSchedule struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		TaxRate:     decimal.New(8, -2),
		DeliveryFee: decimal.New(299, -2),
	}
}

// PricingSummary is derived on every read and never stored.
type PricingSummary struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	TipPercent  int
	Tip         decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

func Percent(p int) decimal.Decimal {
	return decimal.New(int64(p), -2)
}

func Summarize(lines []CartLine, fees FeeSchedule, tipPercent int, discount decimal.Decimal) PricingSummary {
	subtotal := Subtotal(lines)
	tax := subtotal.Mul(fees.TaxRate)
	tip := subtotal.Mul(Percent(tipPercent))

	return PricingSummary{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fees.DeliveryFee,
		TipPercent:  tipPercent,
		Tip:         tip,
		Discount:    discount,
		Total:       subtotal.Add(tax).Add(fees.DeliveryFee).Add(tip).Sub(discount),
	}
}

// Rounded returns the summary rounded half away from zero to cents, for display.
func (p PricingSummary) Rounded() PricingSummary {
	return PricingSummary{
		Subtotal:    p.Subtotal.Round(2),
		Tax:         p.Tax.Round(2),
		DeliveryFee: p.DeliveryFee.Round(2),
		TipPercent:  p.TipPercent,
		Tip:         p.Tip.Round(2),
		Discount:    p.Discount.Round(2),
		Total:       p.Total.Round(2),
	}
}

// OrderReview is the read-only projection shown before payment.
type OrderReview struct {
	Lines    []CartLine
	Delivery DeliveryDetails
	Pricing  PricingSummary
}

func Review(lines []CartLine, delivery DeliveryDetails, fees FeeSchedule, tipPercent int, discount decimal.Decimal) OrderReview {
	return OrderReview{
		Lines:    lines,
		Delivery: delivery,
		Pricing:  Summarize(lines, fees, tipPercent, discount),
	}
}
