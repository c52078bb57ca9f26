package shared

import (
	"errors"
	"sort"
	"strings"
)

// Error classes. Domain errors wrap exactly one of these so the HTTP layer can
// pick a status code without knowing the domain.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the request clashes with current state.
	ErrConflict = errors.New("conflict")
	// ErrUnprocessable indicates well-formed input that breaks a business rule.
	ErrUnprocessable = errors.New("unprocessable")
	// ErrUnauthorized indicates a missing or unknown user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the user may not perform the action.
	ErrForbidden = errors.New("forbidden")
)

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = NewDomainError(ErrUnauthorized, "InvalidCredentials", "invalid credentials")
	// ErrLoginRequired rejects anonymous requests where a user is needed.
	ErrLoginRequired = NewDomainError(ErrUnauthorized, "Unauthorized", "authentication required")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// DomainError is a sentinel carrying a stable code and an error class.
type DomainError struct {
	class   error
	code    string
	message string
}

// NewDomainError declares a classified sentinel error.
func NewDomainError(class error, code, message string) *DomainError {
	return &DomainError{class: class, code: code, message: message}
}

func (e *DomainError) Error() string {
	return e.message
}

// Unwrap exposes the error class.
func (e *DomainError) Unwrap() error {
	return e.class
}

// Code returns the machine readable error code.
func (e *DomainError) Code() string {
	return e.code
}

// ValidationError collects field level input problems.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError holding a single field message.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records a message for the field, keeping the first one reported.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, ok := v.Fields[field]; ok {
		return
	}
	v.Fields[field] = message
}

// Err returns nil when no field failed.
func (v *ValidationError) Err() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the validation class.
func (v *ValidationError) Unwrap() error {
	return ErrValidation
}

// Code returns the machine readable error code.
func (v *ValidationError) Code() string {
	return "ValidationError"
}

// ProblemMeta exposes the failing fields to API clients.
func (v *ValidationError) ProblemMeta() map[string]any {
	return map[string]any{"fields": v.Fields}
}
