package types

import "fmt"

// CustomError is the transport-level error carried to the global Fiber error
// handler (auth failures, infrastructure errors).
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// ValidationError reports bad or missing input with per-field messages.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ConflictError reports a duplicate in-flight application for the submitter.
// Carries the id of the existing application so the caller can resume it.
type ConflictError struct {
	Message               string `json:"message"`
	ExistingApplicationID uint64 `json:"existing_application_id"`
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NotFoundError covers both an absent resource and one not owned by the
// caller. The two cases are deliberately indistinguishable in responses.
type NotFoundError struct {
	Resource string `json:"resource"`
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}
