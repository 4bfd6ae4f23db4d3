package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InputType string

const (
	InputNone    InputType = "none"
	InputMiles   InputType = "miles"
	InputGallons InputType = "gallons"
	InputTires   InputType = "tires"
)

var inputLimits = map[InputType]struct {
	label string
	max   float64
	unit  string
}{
	InputMiles:   {label: "Miles to tow", max: 100, unit: "miles"},
	InputGallons: {label: "Gallons needed", max: 5, unit: "gallons"},
	InputTires:   {label: "Number of tires", max: 4, unit: "tires"},
}

func (t InputType) Label() string {
	if l, ok := inputLimits[t]; ok {
		return l.label
	}
	return "Input"
}

const (
	FieldServiceInput = "input"
	FieldRating       = "rating"
)

const (
	ErrMsgInputNotNumber = "Please enter a valid number"
	ErrMsgRatingRange    = "Rating must be between 1 and 5"
)

type ServiceOption struct {
	ID            string
	Name          string
	IconURI       string
	BasePrice     decimal.Decimal
	VariablePrice decimal.Decimal
	ETA           string
	Description   string
	RequiresInput bool
	InputType     InputType
}

// PriceLabel renders the base price the way the service list shows it.
func (s ServiceOption) PriceLabel() string {
	return "$" + s.BasePrice.StringFixed(2)
}

// EstimateCost is basePrice + variablePrice * input.
func (s ServiceOption) EstimateCost(input decimal.Decimal) decimal.Decimal {
	if !s.RequiresInput {
		return s.BasePrice
	}
	return s.BasePrice.Add(s.VariablePrice.Mul(input))
}

// ValidateInput checks the numeric input a service requires. raw is the text as entered.
func (s ServiceOption) ValidateInput(raw string) (decimal.Decimal, FieldErrors) {
	if !s.RequiresInput {
		return decimal.Zero, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, FieldErrors{FieldServiceInput: fmt.Sprintf("Please enter %s", strings.ToLower(s.InputType.Label()))}
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || !v.IsPositive() {
		return decimal.Zero, FieldErrors{FieldServiceInput: ErrMsgInputNotNumber}
	}
	if l, ok := inputLimits[s.InputType]; ok && v.GreaterThan(decimal.NewFromFloat(l.max)) {
		return decimal.Zero, FieldErrors{FieldServiceInput: fmt.Sprintf("Maximum %s %s allowed", decimal.NewFromFloat(l.max).String(), l.unit)}
	}
	return v, nil
}

type BookingStatus string

const (
	BookingRequested  BookingStatus = "requested"
	BookingEnRoute    BookingStatus = "en_route"
	BookingArrived    BookingStatus = "arrived"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// bookingLifecycle lines up with the technician tracking stages.
var bookingLifecycle = []BookingStatus{
	BookingRequested,
	BookingEnRoute,
	BookingArrived,
	BookingInProgress,
	BookingCompleted,
}

func BookingStatusAt(index int) BookingStatus {
	if index < 0 {
		return BookingRequested
	}
	if index >= len(bookingLifecycle) {
		return BookingCompleted
	}
	return bookingLifecycle[index]
}

func (s BookingStatus) Valid() bool {
	if s == BookingCancelled {
		return true
	}
	for _, v := range bookingLifecycle {
		if v == s {
			return true
		}
	}
	return false
}

type ServiceBooking struct {
	BookingID     string
	UserID        string
	ServiceID     string
	TechnicianID  string
	ServiceType   string
	InputValue    *decimal.Decimal
	EstimatedCost decimal.Decimal
	PaymentMethod string
	Status        BookingStatus
	Timestamp     time.Time
	ETA           string
}

type BookingRequest struct {
	UserID        string
	ServiceID     string
	InputValue    *decimal.Decimal
	EstimatedCost decimal.Decimal
	PaymentMethod string
	UserLocation  LatLng
}

type TechnicianInfo struct {
	ID       string
	Name     string
	PhotoURL string
	Vehicle  string
	Phone    string
	Rating   float64
	Location LatLng
}

type LocationUpdate struct {
	TechnicianID string
	Location     LatLng
	Timestamp    time.Time
}

func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
