// Package apierror defines the stable machine-readable error vocabulary
// returned by the HTTP layer. Every failure mode handled at the boundary maps
// to exactly one code so clients can branch without parsing messages.
package apierror

import "net/http"

// Error carries an HTTP status, a stable code and a human-readable message.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Stable error codes.
const (
	CodeMissingCredentials      = "MISSING_CREDENTIALS"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeAuthMissing             = "AUTH_MISSING"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeTokenInvalid            = "TOKEN_INVALID"
	CodeSessionInvalid          = "SESSION_INVALID"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeValidationError         = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeRateLimited             = "RATE_LIMITED"
	CodeInternalError           = "INTERNAL_ERROR"
)

// MissingCredentials creates a 400 error for absent username/password.
func MissingCredentials() *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeMissingCredentials,
		Message:    "username and password are required",
	}
}

// InvalidCredentials creates a 401 error for a failed credential check.
func InvalidCredentials() *Error {
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeInvalidCredentials,
		Message:    "invalid username or password",
	}
}

// AuthMissing creates a 401 error for a missing bearer token or session header.
func AuthMissing(message string) *Error {
	if message == "" {
		message = "authorization header and session id are required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeAuthMissing,
		Message:    message,
	}
}

// TokenExpired creates a 401 error for a structurally valid but expired token.
func TokenExpired() *Error {
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeTokenExpired,
		Message:    "token has expired",
	}
}

// TokenInvalid creates a 401 error for a token that fails verification.
func TokenInvalid() *Error {
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeTokenInvalid,
		Message:    "token is invalid",
	}
}

// SessionInvalid creates a 401 error for an absent, expired or mismatched session.
func SessionInvalid() *Error {
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeSessionInvalid,
		Message:    "session is invalid or has expired",
	}
}

// InsufficientPermissions creates a 403 error for a failed role check.
func InsufficientPermissions() *Error {
	return &Error{
		StatusCode: http.StatusForbidden,
		Code:       CodeInsufficientPermissions,
		Message:    "insufficient permissions for this operation",
	}
}

// Validation creates a 400 error for bad input values.
func Validation(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidationError,
		Message:    message,
	}
}

// NotFound creates a 404 error.
func NotFound(message string) *Error {
	if message == "" {
		message = "resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    message,
	}
}

// Conflict creates a 409 error, e.g. for a duplicate stock symbol.
func Conflict(message string) *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       CodeConflict,
		Message:    message,
	}
}

// RateLimited creates a 429 error.
func RateLimited() *Error {
	return &Error{
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimited,
		Message:    "rate limit exceeded",
	}
}

// Internal creates a 500 error with a generic message.
func Internal(message string) *Error {
	if message == "" {
		message = "internal error"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    message,
	}
}
