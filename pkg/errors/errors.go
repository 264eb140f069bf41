// Package errors defines the typed rejection taxonomy for the KeyGate API Key
// Service. Every business-rule failure is a synchronous, terminal AppError with
// a machine-readable code and an HTTP status mapping; none of them represent
// transient conditions that the service retries internally.
package errors

import (
	"fmt"
	"net/http"

	"github.com/turtacn/keygate/pkg/constants"
)

// ================================================================================
// AppError
// ================================================================================

// AppError represents a structured application error.
type AppError struct {
	Code        constants.ErrorCode
	Message     string
	Description string
	Details     map[string]string
	cause       error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain support.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is reports whether target carries the same error code. This lets callers use
// errors.Is against the predefined sentinel values even after WithError or
// WithDetail produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithError returns a copy of the error carrying cause as its underlying error.
// The predefined sentinel values are never mutated.
func (e *AppError) WithError(cause error) *AppError {
	clone := e.clone()
	clone.cause = cause
	return clone
}

// WithDetail returns a copy of the error with an additional detail entry.
func (e *AppError) WithDetail(key, value string) *AppError {
	clone := e.clone()
	if clone.Details == nil {
		clone.Details = make(map[string]string, 1)
	}
	clone.Details[key] = value
	return clone
}

func (e *AppError) clone() *AppError {
	details := make(map[string]string, len(e.Details))
	for k, v := range e.Details {
		details[k] = v
	}
	if len(details) == 0 {
		details = nil
	}
	return &AppError{
		Code:        e.Code,
		Message:     e.Message,
		Description: e.Description,
		Details:     details,
		cause:       e.cause,
	}
}

// HTTPStatus maps the error code to the status the HTTP surface responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case constants.ErrCodeNameTooLong,
		constants.ErrCodeTooManyScopes,
		constants.ErrCodeScopeTooLong,
		constants.ErrCodeExpirationInPast,
		constants.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case constants.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case constants.ErrCodeInsufficientPermissions:
		return http.StatusForbidden
	case constants.ErrCodeServiceNotFound,
		constants.ErrCodeKeyNotFound:
		return http.StatusNotFound
	case constants.ErrCodeKeyInactive,
		constants.ErrCodeKeyExpired,
		constants.ErrCodeKeyAlreadyRevoked,
		constants.ErrCodeKeyAlreadyActive,
		constants.ErrCodeServiceMismatch,
		constants.ErrCodeServiceAlreadyExists:
		return http.StatusConflict
	case constants.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError with the given code and message.
func New(code constants.ErrorCode, message, description string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Description: description,
	}
}

// ================================================================================
// Input Validation Errors
// ================================================================================

var (
	// ErrNameTooLong rejects display names longer than the 32-character limit.
	ErrNameTooLong = New(constants.ErrCodeNameTooLong,
		"name exceeds maximum length",
		fmt.Sprintf("Display names are limited to %d characters.", constants.MaxNameLen))

	// ErrTooManyScopes rejects scope lists with more than 8 entries.
	ErrTooManyScopes = New(constants.ErrCodeTooManyScopes,
		"too many scopes specified",
		fmt.Sprintf("A key carries at most %d scopes.", constants.MaxScopes))

	// ErrScopeTooLong rejects individual scopes longer than 16 characters.
	ErrScopeTooLong = New(constants.ErrCodeScopeTooLong,
		"scope name exceeds maximum length",
		fmt.Sprintf("Scope strings are limited to %d characters.", constants.MaxScopeLen))

	// ErrExpirationInPast rejects expiration timestamps that are not strictly
	// in the future at the moment they are set.
	ErrExpirationInPast = New(constants.ErrCodeExpirationInPast,
		"expiration date must be in the future",
		"An expiration timestamp must be strictly greater than the current time when it is set.")
)

// ================================================================================
// State Conflict Errors
// ================================================================================

var (
	// ErrKeyInactive rejects usage recording and scope validation on revoked keys.
	ErrKeyInactive = New(constants.ErrCodeKeyInactive,
		"API key is not active",
		"The key has been revoked; reactivate it before use.")

	// ErrKeyExpired rejects operations on keys past their expiration timestamp.
	ErrKeyExpired = New(constants.ErrCodeKeyExpired,
		"API key has expired",
		"The key's expiration timestamp has passed.")

	// ErrKeyAlreadyRevoked rejects a revoke on a key that is already inactive.
	ErrKeyAlreadyRevoked = New(constants.ErrCodeKeyAlreadyRevoked,
		"API key is already revoked",
		"Only an active key can be revoked.")

	// ErrKeyAlreadyActive rejects a reactivate on a key that is already active.
	ErrKeyAlreadyActive = New(constants.ErrCodeKeyAlreadyActive,
		"API key is already active",
		"Only a revoked key can be reactivated.")

	// ErrRateLimitExceeded rejects usage recording once the daily allowance is spent.
	ErrRateLimitExceeded = New(constants.ErrCodeRateLimitExceeded,
		"rate limit exceeded",
		"The key's daily request allowance is exhausted; it resets at the next UTC day boundary.")
)

// ================================================================================
// Authorization Errors
// ================================================================================

var (
	// ErrUnauthorized rejects signers that fail the operation's role check.
	ErrUnauthorized = New(constants.ErrCodeUnauthorized,
		"unauthorized",
		"The signer does not hold the role this operation requires.")

	// ErrInsufficientPermissions rejects scope validation when the key lacks
	// the requested scope.
	ErrInsufficientPermissions = New(constants.ErrCodeInsufficientPermissions,
		"insufficient permissions for this scope",
		"The key does not carry the requested scope or the wildcard scope.")

	// ErrServiceMismatch rejects operations addressing a key through a service
	// that does not own it.
	ErrServiceMismatch = New(constants.ErrCodeServiceMismatch,
		"service mismatch",
		"The key does not belong to the named service.")
)

// ================================================================================
// Host-Layer Errors
// ================================================================================

var (
	// ErrServiceNotFound indicates no service record exists for the authority.
	ErrServiceNotFound = New(constants.ErrCodeServiceNotFound,
		"service not found",
		"No service record exists for the given authority.")

	// ErrKeyNotFound indicates no key record exists for the identity triple.
	ErrKeyNotFound = New(constants.ErrCodeKeyNotFound,
		"API key not found",
		"No key record exists for the given service, owner, and sequence.")

	// ErrServiceAlreadyExists indicates the authority already owns a service record.
	ErrServiceAlreadyExists = New(constants.ErrCodeServiceAlreadyExists,
		"service already exists",
		"Each authority owns at most one service record.")

	// ErrInvalidRequest indicates a malformed request at the HTTP boundary.
	ErrInvalidRequest = New(constants.ErrCodeInvalidRequest,
		"invalid request",
		"The request is missing a required parameter or is otherwise malformed.")

	// ErrDatabaseOperation indicates a storage substrate failure.
	ErrDatabaseOperation = New(constants.ErrCodeInternal,
		"database operation failed",
		"The storage substrate rejected the operation.")

	// ErrCache indicates a cache access failure. Cache failures never fail the
	// operation; callers fall through to the storage substrate.
	ErrCache = New(constants.ErrCodeInternal,
		"cache operation failed",
		"The record cache rejected the operation.")
)

// ================================================================================
// Utilities
// ================================================================================

// AsAppError attempts to cast an error to *AppError.
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// FromError converts any error to an AppError, wrapping unknown errors as internal.
func FromError(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return New(constants.ErrCodeInternal, "internal error", "An unexpected error occurred.").WithError(err)
}
