package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FieldPaymentMethod = "payment_method"
	FieldPromoCode     = "promo_code"
)

const (
	ErrMsgPaymentMethodRequired = "Please select a payment method"
	ErrMsgPaymentMethodUnknown  = "Unknown payment method"
	ErrMsgPromoInvalid          = "Invalid promo code"
)

type PaymentMethod struct {
	ID     string
	Brand  string
	Last4  string
	Expiry string
}

func DefaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{ID: "pm_1", Brand: "Visa", Last4: "4242", Expiry: "04/25"},
		{ID: "pm_2", Brand: "Mastercard", Last4: "5555", Expiry: "05/26"},
	}
}

func FindPaymentMethod(methods []PaymentMethod, id string) (PaymentMethod, bool) {
	for _, m := range methods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}

// PromoRule is the single discount model: a percentage of the subtotal,
// unlocked by any of Codes (matched case-insensitively).
type PromoRule struct {
	Codes []string
	Rate  decimal.Decimal
}

func DefaultPromoRule() PromoRule {
	return PromoRule{
		Codes: []string{"PLUG10", "PLUG50"},
		Rate:  decimal.New(10, -2),
	}
}

func (r PromoRule) Match(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, c := range r.Codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

func (r PromoRule) Discount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(r.Rate)
}
