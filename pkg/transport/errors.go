package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rhuss/usergate/pkg/api"
)

// StatusFromError maps a GateError kind to the corresponding HTTP status code.
func StatusFromError(err *api.GateError) int {
	switch err.Kind {
	case api.KindBlocked:
		return http.StatusForbidden
	case api.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case api.KindUnauthorized, api.KindMissingTenantContext:
		return http.StatusUnauthorized
	case api.KindNotFound:
		return http.StatusNotFound
	case api.KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case api.KindBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes the JSON error envelope with an explicit status code.
func WriteErrorResponse(w http.ResponseWriter, gateErr *api.GateError, statusCode int) {
	if gateErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(gateErr.RetryAfter/time.Second), 10))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.NewErrorResponse(gateErr))
}

// WriteError writes a GateError, deriving the HTTP status code from its kind.
func WriteError(w http.ResponseWriter, gateErr *api.GateError) {
	WriteErrorResponse(w, gateErr, StatusFromError(gateErr))
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.NewSuccessResponse(message, data))
}
