// Package apperror defines the typed errors returned by services and their HTTP mapping.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindInsufficientPoints Kind = "INSUFFICIENT_POINTS"
	KindOutOfStock         Kind = "OUT_OF_STOCK"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindStorage            Kind = "STORAGE_ERROR"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a detail value.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports missing or malformed input.
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// NotFound reports a missing entity.
func NotFound(entity string, id interface{}) *Error {
	return newError(KindNotFound, "%s %v not found", entity, id).WithDetail("entity", entity)
}

// Conflict reports a uniqueness or state conflict.
func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// InsufficientPoints reports a redemption the user cannot afford.
func InsufficientPoints(have, need int) *Error {
	return newError(KindInsufficientPoints, "not enough points: have %d, need %d", have, need).
		WithDetail("have", have).
		WithDetail("need", need)
}

// OutOfStock reports a product with no remaining quantity.
func OutOfStock(productID uint) *Error {
	return newError(KindOutOfStock, "product %d is out of stock", productID)
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden reports a role or ownership mismatch.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// RateLimited reports a throttled client.
func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "too many requests, please try later"}
}

// Storage wraps a persistence failure.
func Storage(op string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: op, Cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: op, Cause: cause}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool { return Is(err, KindConflict) }

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool { return Is(err, KindValidation) }

// HTTPStatus maps a kind to a response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInsufficientPoints, KindOutOfStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to clients.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindStorage, KindInternal:
			return "internal error"
		}
		return appErr.Message
	}
	return "internal error"
}
