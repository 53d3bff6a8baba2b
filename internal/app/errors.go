package app

import (
	"fmt"
	"net/http"
)

// DomainError is the service-level error envelope. mapError turns it into
// the JSON error body; Code values (VALIDATION_ERROR, INVALID_STATE,
// ALREADY_DECIDED, ...) are what the clients switch on.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// validationError is the common 422 shape for rejected input.
func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}
