package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError matches the OpenAI error response format.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{
		Error: APIErrorBody{
			Message:   message,
			Type:      errType,
			Code:      code,
			RequestID: requestID,
		},
	})
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, requestID string, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

func WriteServiceUnavailableError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusServiceUnavailable, "server_error", "service_unavailable", message)
}

func WriteBudgetExceededError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusPaymentRequired, "budget_error", "budget_exceeded", message)
}

// WriteNoCandidatesError reports a routing configuration problem: no provider
// can serve the task as asked.
func WriteNoCandidatesError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusUnprocessableEntity, "routing_error", "no_candidate_providers", message)
}

func WriteExhaustedError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadGateway, "upstream_error", "providers_exhausted", message)
}

func WriteRouteTimeoutError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusGatewayTimeout, "upstream_error", "route_timeout", message)
}
