package domain

import (
	"regexp"
	"strings"
)

type RequestedTime string

const (
	RequestedTimeASAP   RequestedTime = "ASAP"
	RequestedTime30Min  RequestedTime = "30 minutes"
	RequestedTime1Hour  RequestedTime = "1 hour"
	RequestedTime2Hours RequestedTime = "2 hours"
)

var RequestedTimes = []RequestedTime{
	RequestedTimeASAP,
	RequestedTime30Min,
	RequestedTime1Hour,
	RequestedTime2Hours,
}

func (t RequestedTime) Valid() bool {
	for _, v := range RequestedTimes {
		if v == t {
			return true
		}
	}
	return false
}

const (
	FieldAddress       = "address"
	FieldPhone         = "phone"
	FieldRequestedTime = "requested_time"
)

const (
	ErrMsgAddressRequired = "Address is required"
	ErrMsgPhoneRequired   = "Phone number is required"
	ErrMsgPhoneInvalid    = "Please enter a valid 10-digit phone number"
	ErrMsgTimeInvalid     = "Please choose a delivery time"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

// DeliveryForm holds the raw, unvalidated input of the delivery details step.
type DeliveryForm struct {
	Address       string
	Phone         string
	Instructions  string
	RequestedTime RequestedTime
}

// DeliveryDetails is the immutable snapshot emitted by a valid DeliveryForm.
type DeliveryDetails struct {
	Address       string
	Phone         string
	Instructions  string
	RequestedTime RequestedTime
}

func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func (f DeliveryForm) Validate() FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.Address) == "" {
		errs[FieldAddress] = ErrMsgAddressRequired
	}

	switch {
	case strings.TrimSpace(f.Phone) == "":
		errs[FieldPhone] = ErrMsgPhoneRequired
	case !ValidPhone(f.Phone):
		errs[FieldPhone] = ErrMsgPhoneInvalid
	}

	if f.RequestedTime != "" && !f.RequestedTime.Valid() {
		errs[FieldRequestedTime] = ErrMsgTimeInvalid
	}

	return errs
}

// Details validates the form and returns the snapshot, or the field errors when invalid.
func (f DeliveryForm) Details() (DeliveryDetails, FieldErrors) {
	if errs := f.Validate(); len(errs) > 0 {
		return DeliveryDetails{}, errs
	}
	rt := f.RequestedTime
	if rt == "" {
		rt = RequestedTimeASAP
	}
	return DeliveryDetails{
		Address:       f.Address,
		Phone:         f.Phone,
		Instructions:  f.Instructions,
		RequestedTime: rt,
	}, nil
}

// Form turns a snapshot back into an editable form, used when editing from review.
func (d DeliveryDetails) Form() DeliveryForm {
	return DeliveryForm(d)
}
