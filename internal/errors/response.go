package ierr

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorResponse is the JSON body returned for failed API calls
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed API call
type ErrorDetail struct {
	Display       string                 `json:"display"`
	InternalError string                 `json:"internal_error,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// HTTPStatusFromErr maps a marked error to an HTTP status code
func HTTPStatusFromErr(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrHTTPClient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the response body for err. The internal error text
// is only included for client side errors.
func NewErrorResponse(err error) ErrorResponse {
	display := "An unexpected error occurred"
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		display = hints[0]
	}

	resp := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display: display,
			Details: GetReportableDetails(err),
		},
	}
	if status := HTTPStatusFromErr(err); status < http.StatusInternalServerError {
		resp.Error.InternalError = err.Error()
	}
	return resp
}
