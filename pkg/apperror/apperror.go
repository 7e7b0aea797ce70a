package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindAuthentication Kind = "AUTHENTICATION_ERROR"
	KindAuthorization  Kind = "AUTHORIZATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindRateLimited    Kind = "RATE_LIMITED"
	KindDatabase       Kind = "DATABASE_ERROR"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// AppError standardizes errors crossing the HTTP boundary.
type AppError struct {
	Kind    Kind
	Message string
	Status  int
	Details map[string]any
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

// New constructs an AppError.
func New(kind Kind, message string, status int, details map[string]any) *AppError {
	return &AppError{Kind: kind, Message: message, Status: status, Details: details}
}

func Validation(message string, details map[string]any) error {
	return New(KindValidation, message, http.StatusBadRequest, details)
}

func Authentication(message string) error {
	return New(KindAuthentication, message, http.StatusUnauthorized, nil)
}

func Authorization(message string, details map[string]any) error {
	return New(KindAuthorization, message, http.StatusForbidden, details)
}

func NotFound(resource string) error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func Conflict(message string, details map[string]any) error {
	return New(KindConflict, message, http.StatusConflict, details)
}

func RateLimited(message string) error {
	return New(KindRateLimited, message, http.StatusTooManyRequests, nil)
}

// Database wraps a datastore failure. The cause is kept for logging only.
func Database(err error) error {
	return &AppError{
		Kind:    KindDatabase,
		Message: "database operation failed",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Internal(err error) error {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// From converts any error into an AppError.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromStatus(fiberErr.Code, fiberErr.Message)
	}
	return Internal(err).(*AppError)
}

func fromStatus(status int, message string) *AppError {
	switch status {
	case http.StatusBadRequest:
		return New(KindValidation, message, status, nil)
	case http.StatusUnauthorized:
		return New(KindAuthentication, message, status, nil)
	case http.StatusForbidden:
		return New(KindAuthorization, message, status, nil)
	case http.StatusNotFound:
		return New(KindNotFound, message, status, nil)
	case http.StatusConflict:
		return New(KindConflict, message, status, nil)
	case http.StatusTooManyRequests:
		return New(KindRateLimited, message, status, nil)
	}
	if status >= http.StatusInternalServerError {
		return New(KindInternal, "internal server error", status, nil)
	}
	return New(KindValidation, message, status, nil)
}
