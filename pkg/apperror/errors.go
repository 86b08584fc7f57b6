package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrInternal           = errors.New("internal server error")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
)

// Machine readable codes carried in the response envelope.
const (
	CodeNoToken                 = "NO_TOKEN"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeAccountBlocked          = "ACCOUNT_BLOCKED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeUnauthorizedAccess      = "UNAUTHORIZED_ACCESS"
	CodeUnauthenticated         = "UNAUTHENTICATED"
	CodeForbidden               = "FORBIDDEN"
	CodeNotFound                = "NOT_FOUND"
	CodeValidation              = "VALIDATION_ERROR"
	CodeConflict                = "CONFLICT"
	CodeServiceUnavailable      = "SERVICE_UNAVAILABLE"
	CodeRateLimited             = "RATE_LIMITED"
	CodeInternal                = "INTERNAL_ERROR"
	CodePaymentNotConfirmed     = "PAYMENT_NOT_CONFIRMED"
	CodeAssignmentFailed        = "ASSIGNMENT_FAILED"
)

// AppError couples an error kind (one of the sentinels above) with a
// machine code and a user facing message.
type AppError struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// New creates a new AppError
func New(kind error, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func Wrap(kind error, code, message string, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

func Unauthenticated(code, message string) *AppError {
	return New(ErrUnauthorized, code, message)
}

func Forbidden(code, message string) *AppError {
	return New(ErrForbidden, code, message)
}

func NotFound(message string) *AppError {
	return New(ErrNotFound, CodeNotFound, message)
}

func Conflict(message string) *AppError {
	return New(ErrConflict, CodeConflict, message)
}

func Invalid(message string) *AppError {
	return New(ErrInvalidInput, CodeValidation, message)
}

func Unavailable(err error) *AppError {
	return Wrap(ErrServiceUnavailable, CodeServiceUnavailable, "service temporarily unavailable, please retry", err)
}

func Internal(err error) *AppError {
	return Wrap(ErrInternal, CodeInternal, "", err)
}

// CodeOf returns the machine code for err, falling back to the code of its kind.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Code != "" {
			return appErr.Code
		}
		err = appErr.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthenticated
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrServiceUnavailable):
		return CodeServiceUnavailable
	case errors.Is(err, ErrRateLimitExceeded):
		return CodeRateLimited
	}
	return CodeInternal
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		err = appErr.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
