package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeBadRequest   ErrorType = "BAD_REQUEST"
	ErrorTypeCooldown     ErrorType = "COOLDOWN"

	// Application errors
	ErrorTypeInternal  ErrorType = "INTERNAL"
	ErrorTypeRateLimit ErrorType = "RATE_LIMIT"

	// Infrastructure errors
	ErrorTypeRepository       ErrorType = "REPOSITORY"
	ErrorTypePartialMove      ErrorType = "PARTIAL_MOVE"
	ErrorTypeStorageTransient ErrorType = "STORAGE_TRANSIENT"
)

// RateLimitMessage is the body of every 429 the rate limiter sends.
const RateLimitMessage = "Rate limit exceeded. Please try again shortly."

// FieldErrors maps a form field name to a human readable message.
type FieldErrors map[string]string

// Add records the first message for a field.
func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

// Merge copies entries from other that are not already present.
func (f FieldErrors) Merge(other FieldErrors) {
	for field, msg := range other {
		f.Add(field, msg)
	}
}

func (f FieldErrors) HasErrors() bool {
	return len(f) > 0
}

func (f FieldErrors) String() string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, f[name]))
	}
	return strings.Join(parts, "; ")
}

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType   `json:"type"`
	Message    string      `json:"message"`
	Code       string      `json:"code,omitempty"`
	Fields     FieldErrors `json:"fields,omitempty"`
	RetryAfter int         `json:"-"`
	Cause      error       `json:"-"`
	HTTPStatus int         `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, e.Fields.String())
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError creates a validation error carrying per-field messages
func NewValidationError(fields FieldErrors) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    "validation failed",
		Fields:     fields,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return &AppError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    RateLimitMessage,
		RetryAfter: retryAfter,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewCooldownError is returned when an action is attempted again too soon
func NewCooldownError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeCooldown,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewRepositoryError creates a storage or item-conversion error
func NewRepositoryError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeRepository,
		Message:    message,
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewPartialMoveError reports a move whose new items were written but whose
// old items could not be removed.
func NewPartialMoveError(err error) *AppError {
	return &AppError{
		Type:       ErrorTypePartialMove,
		Message:    "New workout created but failed to delete old one (move partially completed)",
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewStorageTransientError wraps a failed rate limit counter write
func NewStorageTransientError(err error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorageTransient,
		Message:    "rate limit counter unavailable",
		Cause:      err,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Helper functions

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

func IsUnauthorized(err error) bool {
	return IsType(err, ErrorTypeUnauthorized)
}

// IsRepository is true for both plain repository errors and partial moves
func IsRepository(err error) bool {
	return IsType(err, ErrorTypeRepository) || IsType(err, ErrorTypePartialMove)
}

func IsPartialMove(err error) bool {
	return IsType(err, ErrorTypePartialMove)
}

func IsStorageTransient(err error) bool {
	return IsType(err, ErrorTypeStorageTransient)
}

// FieldsOf returns the field messages of a validation error, or nil
func FieldsOf(err error) FieldErrors {
	if appErr := GetAppError(err); appErr != nil && appErr.Type == ErrorTypeValidation {
		return appErr.Fields
	}
	return nil
}
