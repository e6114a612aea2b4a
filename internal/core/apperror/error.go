// Package apperror provides structured error handling for the allocation core.
// All business errors must use AppError so callers can branch on machine codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the allocation subsystem
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict          = "CONFLICT"
	CodeNumberTaken       = "NUMBER_ALREADY_ASSIGNED"
	CodeSequenceConflict  = "SEQUENCE_CONFLICT"
	CodeBulkLoadCollision = "BULK_LOAD_COLLISION"

	// Business rule violations (422)
	CodePoolExhausted = "POOL_EXHAUSTED"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (scope fields, contended values, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewNumberTaken reports that a concurrent writer already assigned the number
// within the same scope. The contended value is carried in details so the
// caller can pick a different candidate.
func NewNumberTaken(number string) *AppError {
	return &AppError{
		Code:       CodeNumberTaken,
		Message:    fmt.Sprintf("Number %s is already assigned in this scope", number),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"number": number},
	}
}

// NewSequenceConflict reports a lost race on the next sequence value.
// Retryable: re-read the current maximum and try again.
func NewSequenceConflict(useCase string, number int64) *AppError {
	return &AppError{
		Code:       CodeSequenceConflict,
		Message:    "Concurrent caller claimed the same sequence value",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"use_case": useCase, "number": number},
	}
}

// NewPoolExhausted reports that no available record remains in scope.
// Names the full scope for operator diagnosis.
func NewPoolExhausted(kind, tenantID, productID string, environment int) *AppError {
	return &AppError{
		Code: CodePoolExhausted,
		Message: fmt.Sprintf(
			"No available %s left for tenant %s, product %s, environment %d",
			kind, tenantID, productID, environment,
		),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"kind":        kind,
			"tenant_id":   tenantID,
			"product_id":  productID,
			"environment": environment,
		},
	}
}

// NewBulkLoadCollision rejects a pool load batch, naming the first identifier
// that already exists in scope.
func NewBulkLoadCollision(identifier string) *AppError {
	return &AppError{
		Code:       CodeBulkLoadCollision,
		Message:    fmt.Sprintf("Identifier %s already exists in this scope, batch rejected", identifier),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"identifier": identifier},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsNumberTaken checks if error is CodeNumberTaken
func IsNumberTaken(err error) bool {
	return IsCode(err, CodeNumberTaken)
}

// IsSequenceConflict checks if error is CodeSequenceConflict
func IsSequenceConflict(err error) bool {
	return IsCode(err, CodeSequenceConflict)
}
