package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"series-tracker/models"
)

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and writes the error envelope
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// details are logged by the services, not sent to clients
		msg = "internal server error"
	}
	writeJSON(w, status, models.ErrorResponse{
		Error: msg,
		Code:  models.ErrorCode(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.InvalidInput("invalid JSON: " + err.Error())
	}
	return nil
}

// NotFound answers requests that match no route
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, models.ErrNotFound))
}

// MethodNotAllowed answers requests whose path exists under another method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{
		Error: "method " + r.Method + " not allowed",
		Code:  "method_not_allowed",
	})
}
