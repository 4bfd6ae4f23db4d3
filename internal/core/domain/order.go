package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is what the payment step hands to the tracking step.
type Order struct {
	ID              string
	SessionID       string
	Lines           []CartLine
	Delivery        DeliveryDetails
	Pricing         PricingSummary
	PaymentMethodID string
	PromoCode       string
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
