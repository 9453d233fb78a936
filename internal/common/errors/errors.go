package errors

import (
	"fmt"
	"time"
)

// ErrorCode classifies application errors
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Pipeline errors
	ErrCodeConversionFailed  ErrorCode = "CONVERSION_FAILED"
	ErrCodePageLimitExceeded ErrorCode = "PAGE_LIMIT_EXCEEDED"
	ErrCodePathSecurity      ErrorCode = "PATH_SECURITY"

	// Spooler errors
	ErrCodeSpooler      ErrorCode = "SPOOLER_ERROR"
	ErrCodeInvalidJobID ErrorCode = "INVALID_JOB_ID"

	// External API errors
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
)

// AppError is a typed application error carrying a code and optional details
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsSecurity reports whether the error must be logged but never detailed
// back to the user.
func (e *AppError) IsSecurity() bool {
	return e.Code == ErrCodePathSecurity
}

// WithDetail attaches detail information to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Constructors for the common cases

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewNotFoundError(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource)
}

func NewConversionError(path string, err error) *AppError {
	return Wrap(err, ErrCodeConversionFailed, "Document conversion failed").
		WithDetail("path", path)
}

func NewPageLimitError(pages, limit int) *AppError {
	return New(ErrCodePageLimitExceeded, fmt.Sprintf("Page count %d exceeds limit %d", pages, limit)).
		WithDetail("pages", pages).
		WithDetail("limit", limit)
}

func NewPathSecurityError(path string) *AppError {
	return New(ErrCodePathSecurity, "Path is outside the storage directory").
		WithDetail("path", path)
}

func NewSpoolerError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeSpooler, fmt.Sprintf("Spooler operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewInvalidJobIDError(jobID string) *AppError {
	return New(ErrCodeInvalidJobID, fmt.Sprintf("Invalid job id %q", jobID)).
		WithDetail("job_id", jobID)
}

func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("Telegram API operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError extracts an AppError from err if it is one
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}
