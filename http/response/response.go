// Package response is the REST adapter's single place for writing JSON
// bodies and mapping *errors.Error to an HTTP status, per spec §7's
// "adapters translate to HTTP status" requirement.
package response

import (
	"encoding/json"
	"net/http"

	"browsergate/errors"
)

// RespondJSON writes v as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondMessage writes a {"error": msg} body.
func RespondMessage(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the gateway's error taxonomy (spec §7) to HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnauthorizedSession:
		return http.StatusForbidden
	case errors.CodeShuttingDown:
		return http.StatusServiceUnavailable
	case errors.CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case errors.CodeQueueFull:
		return http.StatusTooManyRequests
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeLaunchFailed:
		return http.StatusBadGateway
	case errors.CodePageLimitReached:
		return http.StatusConflict
	case errors.CodeUnhealthy:
		return http.StatusServiceUnavailable
	case errors.CodeInvalidConfig:
		return http.StatusBadRequest
	case errors.CodeAlreadyInitialized:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes a *errors.Error body with its mapped status. In
// line with spec §7, Internal's cause is never included in the body.
func RespondError(w http.ResponseWriter, err *errors.Error) {
	status := statusFor(err.Code)
	body := map[string]any{
		"code":     err.Code,
		"category": err.Category,
		"message":  err.Message,
	}
	if err.Code == errors.CodeInternal {
		body["message"] = "internal error"
	}
	RespondJSON(w, status, body)
}
