package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodePending           = "PENDING"
)

// AppError represents a custom application error. Title and Message are
// shown to the user as-is.
type AppError struct {
	Code    string
	Title   string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Notice converts the error into the alert the user should see.
func (e *AppError) Notice() Notice {
	return Notice{Title: e.Title, Message: e.Message}
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(title, message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Title:   title,
		Message: message,
	}
}

func NewPermissionDeniedError(message string, err error) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Title:   "Permission Denied",
		Message: message,
		Err:     err,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInvalidTransitionError(from, intent string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s while %s", intent, from),
	}
}

func NewPendingError(intent string) *AppError {
	return &AppError{
		Code:    CodePending,
		Message: fmt.Sprintf("cannot %s while a sign-in is in progress", intent),
	}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
