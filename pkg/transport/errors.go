package transport

import (
	"encoding/json"
	"net/http"

	"github.com/oaigw/gateway/pkg/api"
)

// HTTPStatusFromError maps an APIError to an HTTP status code, preferring
// an explicitly set HTTPStatus (used for upstream_error, which carries the
// backend's own status).
func HTTPStatusFromError(err *api.APIError) int {
	if err.HTTPStatus != 0 {
		return err.HTTPStatus
	}
	switch err.Type {
	case api.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error body with the given status.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status from
// the error itself.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
