package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when credentials or tokens are rejected
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a document or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique value already exists
	ErrConflict = errors.New("already exists")
	// ErrRateLimited is returned when too many attempts were made
	ErrRateLimited = errors.New("too many requests")
)

// InvalidInput wraps ErrInvalidInput with a reason
func InvalidInput(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// ErrorCode returns the stable code used in error responses
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}

// ErrorForCode maps a response code back to its sentinel error
func ErrorForCode(code string) error {
	switch code {
	case "invalid_input":
		return ErrInvalidInput
	case "unauthorized":
		return ErrUnauthorized
	case "not_found":
		return ErrNotFound
	case "conflict":
		return ErrConflict
	case "rate_limited":
		return ErrRateLimited
	default:
		return nil
	}
}
