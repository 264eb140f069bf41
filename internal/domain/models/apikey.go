// This file contains the APIKey domain model and the key-lifecycle state
// machine: creation validation, lazy day-bucket rollover, rate-limit
// admission, scope checks, and revocation/reactivation transitions.
package models

import (
	"strconv"
	"time"

	"github.com/turtacn/keygate/pkg/constants"
	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/utils"
)

// APIKey represents a scoped, rate-limited, revocable credential issued to an
// owner under a service. The key tracks permission and usage metadata only;
// it carries no secret material.
// APIKey 代表在某个服务下签发给所有者的、带作用域且受速率限制的可吊销凭证。
// 密钥仅跟踪权限和使用元数据，不携带任何机密材料。
type APIKey struct {
	// ServiceAuthority is the back-reference to the owning service's record key.
	// ServiceAuthority 是指向所属服务记录键的反向引用。
	ServiceAuthority string `json:"service_authority" gorm:"primaryKey;size:128;column:service_authority"`

	// Owner is the identity of the principal the key was issued to.
	// Owner 是密钥签发给的主体身份。
	Owner string `json:"owner" gorm:"primaryKey;size:128"`

	// Sequence is the owning service's TotalKeys value at creation time.
	// Together with ServiceAuthority and Owner it forms the key's unique identity.
	// Sequence 是创建时所属服务的 TotalKeys 值，
	// 与 ServiceAuthority 和 Owner 一起构成密钥的唯一身份。
	Sequence uint64 `json:"sequence" gorm:"primaryKey;autoIncrement:false"`

	// Name is the human-readable key name, at most 32 characters.
	Name string `json:"name" gorm:"size:32"`

	// Scopes is the ordered permission scope list, at most 8 entries of at
	// most 16 characters each. The literal "*" matches any requested scope.
	Scopes ScopeList `json:"scopes" gorm:"type:text"`

	// RateLimit is the requests-per-day ceiling. Strictly an exclusive upper
	// bound: RequestsToday must stay below it.
	RateLimit uint64 `json:"rate_limit"`

	// RequestsToday counts requests in the current day bucket.
	RequestsToday uint64 `json:"requests_today"`

	// TotalRequests is the lifetime counter. Never reset, saturating.
	TotalRequests uint64 `json:"total_requests"`

	// LastRequestDay is the day bucket of the last counted request.
	LastRequestDay int64 `json:"last_request_day"`

	// CreatedAt is the creation timestamp in unix seconds.
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt is the optional expiration timestamp in unix seconds.
	// A nil pointer means the key never expires; absence is never modeled
	// as a sentinel integer.
	ExpiresAt *int64 `json:"expires_at,omitempty"`

	// IsActive is the revocation toggle.
	IsActive bool `json:"is_active"`

	// UpdatedAt is bookkeeping for the storage substrate.
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the storage table name for GORM.
func (APIKey) TableName() string {
	return "api_keys"
}

// DayBucket converts a unix-seconds timestamp to its rate-limit day number.
// Floor division keeps pre-epoch timestamps on the correct side of the
// boundary instead of collapsing them into day zero.
func DayBucket(now int64) int64 {
	return utils.FloorDiv(now, constants.SecondsPerDay)
}

// ValidateScopes checks the scope count and per-scope length bounds.
func ValidateScopes(scopes []string) *errors.AppError {
	if len(scopes) > constants.MaxScopes {
		return errors.ErrTooManyScopes.WithDetail("scope_count", strconv.Itoa(len(scopes)))
	}
	for _, scope := range scopes {
		if len(scope) > constants.MaxScopeLen {
			return errors.ErrScopeTooLong.WithDetail("scope", scope)
		}
	}
	return nil
}

// NewAPIKey validates the creation parameters and builds a key record bound to
// the given service. The caller assigns the sequence via Service.AdmitKey and
// persists both records in one atomic write.
func NewAPIKey(svc *Service, owner, name string, scopes []string, rateLimit *uint64, expiresAt *int64, now int64) (*APIKey, *errors.AppError) {
	if appErr := ValidateName(name); appErr != nil {
		return nil, appErr
	}
	if appErr := ValidateScopes(scopes); appErr != nil {
		return nil, appErr
	}
	if expiresAt != nil && *expiresAt <= now {
		return nil, errors.ErrExpirationInPast
	}

	limit := svc.DefaultRateLimit
	if rateLimit != nil {
		limit = *rateLimit
	}

	return &APIKey{
		ServiceAuthority: svc.Authority,
		Owner:            owner,
		Sequence:         svc.NextSequence(),
		Name:             name,
		Scopes:           append(ScopeList(nil), scopes...),
		RateLimit:        limit,
		RequestsToday:    0,
		TotalRequests:    0,
		LastRequestDay:   0,
		CreatedAt:        now,
		ExpiresAt:        cloneExpiry(expiresAt),
		IsActive:         true,
	}, nil
}

// Expired reports whether the key's expiration timestamp has passed.
// Expiration is checked lazily on use; a nil ExpiresAt never expires.
func (k *APIKey) Expired(now int64) bool {
	return k.ExpiresAt != nil && now >= *k.ExpiresAt
}

// BelongsTo reports whether the key was issued under the given service.
func (k *APIKey) BelongsTo(svc *Service) bool {
	return k.ServiceAuthority == svc.Authority
}

// RecordRequest applies the usage-recording transition for a request observed
// at the given time. It is a pure function of (now, LastRequestDay,
// RequestsToday, RateLimit): the receiver is mutated only when the request is
// admitted, so a rejection leaves the record byte-identical.
func (k *APIKey) RecordRequest(now int64) *errors.AppError {
	if !k.IsActive {
		return errors.ErrKeyInactive
	}
	if k.Expired(now) {
		return errors.ErrKeyExpired
	}

	// Lazy rollover: any number of elapsed days collapses into one reset.
	// LastRequestDay never decreases, so a stale clock cannot re-open a
	// previous bucket.
	currentDay := DayBucket(now)
	requestsToday := k.RequestsToday
	if currentDay > k.LastRequestDay {
		requestsToday = 0
	}

	// Exclusive bound: a RateLimit of zero never admits.
	if requestsToday >= k.RateLimit {
		return errors.ErrRateLimitExceeded
	}

	if currentDay > k.LastRequestDay {
		k.LastRequestDay = currentDay
	}
	k.RequestsToday = requestsToday + 1
	k.TotalRequests = utils.SaturatingAddUint64(k.TotalRequests, 1)
	return nil
}

// ValidateScope checks that the key is usable and carries the required scope.
// The check mutates nothing. Wildcard matching is the exact string "*" only.
func (k *APIKey) ValidateScope(now int64, requiredScope string) *errors.AppError {
	if !k.IsActive {
		return errors.ErrKeyInactive
	}
	if k.Expired(now) {
		return errors.ErrKeyExpired
	}
	for _, scope := range k.Scopes {
		if scope == requiredScope || scope == constants.WildcardScope {
			return nil
		}
	}
	return errors.ErrInsufficientPermissions.WithDetail("required_scope", requiredScope)
}

// Revoke transitions the key from Active to Inactive. The caller decrements
// the service's active counter in the same atomic write.
func (k *APIKey) Revoke() *errors.AppError {
	if !k.IsActive {
		return errors.ErrKeyAlreadyRevoked
	}
	k.IsActive = false
	return nil
}

// Reactivate transitions the key from Inactive back to Active. An expired key
// stays Inactive. The caller increments the service's active counter in the
// same atomic write.
func (k *APIKey) Reactivate(now int64) *errors.AppError {
	if k.IsActive {
		return errors.ErrKeyAlreadyActive
	}
	if k.Expired(now) {
		return errors.ErrKeyExpired
	}
	k.IsActive = true
	return nil
}

// UpdateRateLimit overwrites the rate limit without bounds checks and without
// resetting RequestsToday. A new limit below the current day's usage simply
// blocks further admissions until rollover.
func (k *APIKey) UpdateRateLimit(newLimit uint64) {
	k.RateLimit = newLimit
}

// ReplaceScopes swaps the scope list for a fully new one. Same validation as
// creation; replacement, not merge.
func (k *APIKey) ReplaceScopes(newScopes []string) *errors.AppError {
	if appErr := ValidateScopes(newScopes); appErr != nil {
		return appErr
	}
	k.Scopes = append(ScopeList(nil), newScopes...)
	return nil
}

// SetExpiration replaces the expiration timestamp. The new value must be
// strictly in the future; within that constraint it may move an existing
// expiration in either direction or give a never-expiring key one.
func (k *APIKey) SetExpiration(now, newExpiresAt int64) *errors.AppError {
	if newExpiresAt <= now {
		return errors.ErrExpirationInPast
	}
	k.ExpiresAt = &newExpiresAt
	return nil
}

func cloneExpiry(expiresAt *int64) *int64 {
	if expiresAt == nil {
		return nil
	}
	v := *expiresAt
	return &v
}
