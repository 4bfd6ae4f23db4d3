// Package apperr classifies the errors the checkout flows can surface to a caller.
package apperr

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"google.golang.org/grpc/codes"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrOrderProcessing   = errors.New("order is already being processed")
	ErrEmptyCart         = errors.New("cart is empty")
)

// ValidationError carries field-level messages meant to be shown inline.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func NewValidationFields(fields map[string]string) *ValidationError {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return &ValidationError{Fields: cp}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Kind() string { return "validation" }

// AsValidation unwraps a *ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

func Kind(err error) string {
	if _, ok := AsValidation(err); ok {
		return "validation"
	}
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"

	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"

	case errors.Is(err, ErrOrderProcessing):
		return "processing"

	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	if _, ok := AsValidation(err); ok {
		return http.StatusUnprocessableEntity
	}
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrOrderProcessing):
		return http.StatusConflict

	case errors.Is(err, ErrEmptyCart):
		return http.StatusUnprocessableEntity

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}

func GRPCCode(err error) codes.Code {
	if _, ok := AsValidation(err); ok {
		return codes.InvalidArgument
	}
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrEmptyCart):
		return codes.FailedPrecondition
	case errors.Is(err, ErrDuplicateRequest):
		return codes.AlreadyExists
	case errors.Is(err, ErrOrderProcessing):
		return codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}
