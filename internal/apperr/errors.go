package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error carrying a stable machine-readable code. Handlers
// translate codes to HTTP statuses; services return these directly.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two *Error values by code, so wrapped copies made
// with Wrap still compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches an underlying cause while keeping the sentinel's code and
// public message.
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Err: err}
}

var (
	ErrDuplicateEmail = New("DUPLICATE_EMAIL", "email already registered")

	// ErrInvalidCredentials deliberately covers both unknown email and wrong
	// password so login responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "invalid email or password")

	ErrAccountNotActive = New("ACCOUNT_NOT_ACTIVE", "account is not active")
	ErrAccountLocked    = New("ACCOUNT_LOCKED", "account temporarily locked after repeated failed logins")

	ErrInvalidToken        = New("INVALID_TOKEN", "invalid or expired token")
	ErrInvalidRefreshToken = New("INVALID_REFRESH_TOKEN", "invalid refresh token")

	ErrUserNotFound = New("USER_NOT_FOUND", "user not found")
	ErrNotFound     = New("NOT_FOUND", "resource not found")

	ErrUnauthenticated = New("UNAUTHENTICATED", "authentication required")
	ErrForbidden       = New("FORBIDDEN", "insufficient permissions")

	ErrRateLimited = New("RATE_LIMITED", "too many requests")
)

// HTTPStatus maps an error to the transport status the handler layer should
// return. Unknown errors map to 500.
func HTTPStatus(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case "DUPLICATE_EMAIL":
		return http.StatusConflict
	case "INVALID_CREDENTIALS", "INVALID_TOKEN", "INVALID_REFRESH_TOKEN", "UNAUTHENTICATED":
		return http.StatusUnauthorized
	case "ACCOUNT_NOT_ACTIVE", "ACCOUNT_LOCKED", "FORBIDDEN":
		return http.StatusForbidden
	case "USER_NOT_FOUND", "NOT_FOUND":
		return http.StatusNotFound
	case "RATE_LIMITED":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the client-safe message and code for err, falling back to a
// generic message for anything that is not a domain error.
func Public(err error) (code string, message string) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}
	return "INTERNAL_ERROR", "internal server error"
}
