// Package constants defines system-wide constants for the KeyGate API Key Service.
// This package provides type-safe constant definitions used across all modules.
package constants

// ================================================================================
// Record Field Limits
// ================================================================================

const (
	// MaxNameLen is the maximum length of a service or key display name.
	MaxNameLen = 32

	// MaxScopes is the maximum number of permission scopes per key.
	MaxScopes = 8

	// MaxScopeLen is the maximum length of a single scope string.
	MaxScopeLen = 16
)

// WildcardScope matches any requested scope. Matching is exact-string,
// not glob or prefix.
const WildcardScope = "*"

// SecondsPerDay is the size of one rate-limit day bucket.
const SecondsPerDay = 86400

// ================================================================================
// Authorization Roles
// ================================================================================

// Role represents the identity check required to invoke an operation.
type Role string

const (
	// RoleAuthority requires the signer to equal the service authority.
	RoleAuthority Role = "authority"

	// RoleOwnerOrAuthority requires the signer to equal either the key
	// owner or the service authority.
	RoleOwnerOrAuthority Role = "owner_or_authority"
)

// ================================================================================
// Error Codes
// ================================================================================

// ErrorCode is the machine-readable code attached to every AppError.
type ErrorCode string

const (
	// ErrCodeNameTooLong indicates a display name exceeds MaxNameLen.
	ErrCodeNameTooLong ErrorCode = "name_too_long"

	// ErrCodeTooManyScopes indicates more than MaxScopes scopes were supplied.
	ErrCodeTooManyScopes ErrorCode = "too_many_scopes"

	// ErrCodeScopeTooLong indicates a scope string exceeds MaxScopeLen.
	ErrCodeScopeTooLong ErrorCode = "scope_too_long"

	// ErrCodeExpirationInPast indicates an expiration timestamp not strictly in the future.
	ErrCodeExpirationInPast ErrorCode = "expiration_in_past"

	// ErrCodeKeyInactive indicates an operation on a revoked key.
	ErrCodeKeyInactive ErrorCode = "key_inactive"

	// ErrCodeKeyExpired indicates the key passed its expiration timestamp.
	ErrCodeKeyExpired ErrorCode = "key_expired"

	// ErrCodeKeyAlreadyRevoked indicates a revoke on an already inactive key.
	ErrCodeKeyAlreadyRevoked ErrorCode = "key_already_revoked"

	// ErrCodeKeyAlreadyActive indicates a reactivate on an already active key.
	ErrCodeKeyAlreadyActive ErrorCode = "key_already_active"

	// ErrCodeRateLimitExceeded indicates the daily admission check failed.
	ErrCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"

	// ErrCodeUnauthorized indicates the signer failed the required role check.
	ErrCodeUnauthorized ErrorCode = "unauthorized"

	// ErrCodeInsufficientPermissions indicates the key lacks the requested scope.
	ErrCodeInsufficientPermissions ErrorCode = "insufficient_permissions"

	// ErrCodeServiceMismatch indicates the key does not belong to the named service.
	ErrCodeServiceMismatch ErrorCode = "service_mismatch"

	// ErrCodeServiceNotFound indicates no service record exists for the authority.
	ErrCodeServiceNotFound ErrorCode = "service_not_found"

	// ErrCodeKeyNotFound indicates no key record exists for the identity triple.
	ErrCodeKeyNotFound ErrorCode = "key_not_found"

	// ErrCodeServiceAlreadyExists indicates a create for an authority that already
	// owns a service record.
	ErrCodeServiceAlreadyExists ErrorCode = "service_already_exists"

	// ErrCodeInvalidRequest indicates a malformed request at the HTTP boundary.
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// ErrCodeInternal indicates an unexpected server-side failure.
	ErrCodeInternal ErrorCode = "internal_error"
)

// ================================================================================
// Audit Event Types
// ================================================================================

// AuditEventType classifies lifecycle events published to the audit stream.
type AuditEventType string

const (
	// AuditEventServiceCreated is emitted when a service record is initialized.
	AuditEventServiceCreated AuditEventType = "service.created"

	// AuditEventKeyCreated is emitted when a key is issued.
	AuditEventKeyCreated AuditEventType = "key.created"

	// AuditEventKeyRevoked is emitted when a key transitions to inactive.
	AuditEventKeyRevoked AuditEventType = "key.revoked"

	// AuditEventKeyReactivated is emitted when a key transitions back to active.
	AuditEventKeyReactivated AuditEventType = "key.reactivated"

	// AuditEventKeyUpdated is emitted on rate limit, scope, or expiration updates.
	AuditEventKeyUpdated AuditEventType = "key.updated"

	// AuditEventRateLimitExceeded is emitted when an admission check rejects a request.
	AuditEventRateLimitExceeded AuditEventType = "key.rate_limit_exceeded"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type used for values stored in request contexts.
type ContextKey string

const (
	// ContextKeySigner carries the verified signer identity set by the
	// authentication middleware.
	ContextKeySigner ContextKey = "signer"

	// ContextKeyRequestID carries the per-request correlation ID.
	ContextKeyRequestID ContextKey = "request_id"
)

// ================================================================================
// Logging Levels
// ================================================================================

// LogLevel represents the severity of a log entry.
type LogLevel int

const (
	// LogLevelDebug is the most verbose level.
	LogLevelDebug LogLevel = iota

	// LogLevelInfo is the default level.
	LogLevelInfo

	// LogLevelWarn reports recoverable anomalies.
	LogLevelWarn

	// LogLevelError reports operation failures.
	LogLevelError

	// LogLevelFatal reports unrecoverable failures and exits.
	LogLevelFatal
)

// ParseLogLevel converts a configuration string to a LogLevel, defaulting to Info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "fatal":
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}
