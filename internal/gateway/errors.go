package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the session credential is missing or expired.
	// The shell turns this into a re-login prompt.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the role lacks the capability for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means the backend rejected the mutation because remote
	// state changed concurrently (e.g. request already decided).
	ErrConflict = errors.New("conflict")
)

// ValidationError reports missing or malformed local input, caught before
// any remote call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NetworkError wraps a transport failure from the HTTP client.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is any other error response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}
