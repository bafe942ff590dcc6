// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Gatekeep.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - Kind: The coarse taxonomy a client can branch on (VALIDATION, AUTHENTICATION, ...).
  - AppError: A struct containing a Kind, a specific machine-readable Code and a client-safe message.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error taxonomy shared by every failure the API can produce.
type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindLockout        Kind = "LOCKOUT"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindRateLimit      Kind = "RATE_LIMIT"
	KindInternal       Kind = "INTERNAL"
)

// Specific machine-readable codes emitted by the authentication core.
const (
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccountLocked       = "ACCOUNT_LOCKED"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeMissingToken        = "MISSING_TOKEN"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenMalformed      = "TOKEN_MALFORMED"
	CodeSignatureMismatch   = "SIGNATURE_MISMATCH"
	CodeInvalidResetToken   = "INVALID_RESET_TOKEN"
	CodeUnknownRole         = "UNKNOWN_ROLE"
	CodeInvalidRole         = "INVALID_ROLE"
)

// AppError is the canonical error type for the Gatekeep API.
//
// It carries a taxonomy kind, an HTTP status code, a machine-readable code, a
// client-safe message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Kind is the coarse taxonomy entry (e.g. "AUTHENTICATION").
	Kind Kind `json:"kind"`
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "INVALID_CREDENTIALS").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// RetryAfter, in seconds, is sent as the Retry-After header when positive.
	RetryAfter int `json:"-"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of the error carrying cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("User") // Returns "User not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError] for insufficient privilege.
func Forbidden(msg string) *AppError {
	return &AppError{
		Kind:       KindAuthorization,
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Kind:       KindConflict,
		Code:       "CONFLICT",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Kind:       KindRateLimit,
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfterSeconds,
	}
}

// # Authentication Errors

// InvalidCredentials is the single answer for both unknown accounts and wrong
// passwords. Callers must never vary the message.
func InvalidCredentials() *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       CodeInvalidCredentials,
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// AccountLocked creates a 423 [AppError] for an account inside its lockout window.
func AccountLocked(retryAfterSeconds int) *AppError {
	return &AppError{
		Kind:       KindLockout,
		Code:       CodeAccountLocked,
		Message:    fmt.Sprintf("Account temporarily locked. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusLocked,
		RetryAfter: retryAfterSeconds,
	}
}

// AccountInactive creates a 403 [AppError] for a deactivated account.
func AccountInactive() *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       CodeAccountInactive,
		Message:    "Account is deactivated",
		HTTPStatus: http.StatusForbidden,
	}
}

// InvalidRefreshToken is returned for unknown, expired and revoked refresh tokens alike.
func InvalidRefreshToken() *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       CodeInvalidRefreshToken,
		Message:    "Invalid or expired refresh token",
		HTTPStatus: http.StatusForbidden,
	}
}

// MissingToken creates a 401 [AppError] for requests without a credential.
func MissingToken(msg string) *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       CodeMissingToken,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// TokenExpired creates a 401 [AppError]; the client should refresh.
func TokenExpired() *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       CodeTokenExpired,
		Message:    "Access token expired",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// TokenMalformed creates a 403 [AppError] for structurally invalid tokens.
func TokenMalformed() *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       CodeTokenMalformed,
		Message:    "Invalid access token",
		HTTPStatus: http.StatusForbidden,
	}
}

// SignatureMismatch creates a 403 [AppError] for tokens signed with another secret.
func SignatureMismatch() *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       CodeSignatureMismatch,
		Message:    "Invalid access token",
		HTTPStatus: http.StatusForbidden,
	}
}

// InvalidResetToken is returned for unknown, used and expired password reset tokens.
func InvalidResetToken() *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       CodeInvalidResetToken,
		Message:    "Invalid or expired reset token",
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidRole creates a 403 [AppError] for a caller whose role is not recognized.
func InvalidRole() *AppError {
	return &AppError{
		Kind:       KindAuthorization,
		Code:       CodeInvalidRole,
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// UnknownRole creates a 500 [AppError]: a stored user holds a role missing from
// the role table, which is a data integrity failure rather than a client error.
func UnknownRole(cause error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       CodeUnknownRole,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for unavailable dependencies.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
