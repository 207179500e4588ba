package apperrors

import (
	"errors"
	"net/http"
)

// Policy errors are user-visible named conditions, distinct from generic validation.
var (
	ErrStoreClosed            = errors.New("store is closed")
	ErrLimitExceeded          = errors.New("purchase limit exceeded")
	ErrMaxAmountExceeded      = errors.New("store per-order maximum exceeded")
	ErrOutstandingOrderExists = errors.New("an outstanding order already exists")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrNotPending             = errors.New("order is not pending")
	ErrNotApproved            = errors.New("order is not approved")
	ErrNotOwner               = errors.New("order belongs to another employee")
	ErrReasonTooShort         = errors.New("rejection reason is too short")
)

// Generic errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AppError wraps a sentinel error with an HTTP status and a display message.
type AppError struct {
	Err        error
	StatusCode int
	Message    string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap builds an AppError for a sentinel with a custom message.
func Wrap(err error, message string) *AppError {
	return &AppError{Err: err, StatusCode: statusOf(err), Message: message}
}

// New builds an AppError for a sentinel using its default message.
func New(err error) *AppError {
	return &AppError{Err: err, StatusCode: statusOf(err)}
}

// Status resolves the HTTP status code for any error. Unknown errors map to 500.
func Status(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return statusOf(err)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrOutstandingOrderExists),
		errors.Is(err, ErrNotPending),
		errors.Is(err, ErrNotApproved):
		return http.StatusConflict
	case errors.Is(err, ErrStoreClosed),
		errors.Is(err, ErrLimitExceeded),
		errors.Is(err, ErrMaxAmountExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrReasonTooShort),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
