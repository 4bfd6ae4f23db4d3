package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rl1809/plug-checkout/internal/apperr"
)

const msgEmptyCart = "Please add items to your cart before checkout"

// errorMessage is the text shown to the user. Internal failures are not leaked.
func errorMessage(err error) string {
	switch apperr.Kind(err) {
	case "validation":
		return "validation failed"
	case "empty_cart":
		return msgEmptyCart
	case "internal":
		return "internal error"
	default:
		return err.Error()
	}
}

func newErrorResponse(err error) ErrorResponse {
	body := ErrorBody{
		Kind:    apperr.Kind(err),
		Message: errorMessage(err),
	}
	if v, ok := apperr.AsValidation(err); ok {
		body.Fields = v.Fields
	}
	return ErrorResponse{Error: body}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, newErrorResponse(err))
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{Kind: "bad_request", Message: msg},
	})
}
