// Package dto defines the request and response shapes exchanged between the
// interface layers and the application services.
package dto

import "github.com/turtacn/keygate/internal/domain/models"

// KeyRef addresses one key record by its unique identity triple.
type KeyRef struct {
	ServiceAuthority string `json:"service_authority"`
	Owner            string `json:"owner"`
	Sequence         uint64 `json:"sequence"`
}

// CreateServiceRequest initializes a service record. The verified signer
// becomes the service authority.
type CreateServiceRequest struct {
	Name             string `json:"name" binding:"required"`
	DefaultRateLimit uint64 `json:"default_rate_limit"`
}

// CreateKeyRequest issues a new key under a service. The verified signer
// becomes the key owner. RateLimit and ExpiresAt are optional; a nil
// RateLimit inherits the service default, a nil ExpiresAt never expires.
type CreateKeyRequest struct {
	Name      string   `json:"name" binding:"required"`
	Scopes    []string `json:"scopes"`
	RateLimit *uint64  `json:"rate_limit,omitempty"`
	ExpiresAt *int64   `json:"expires_at,omitempty"`
}

// ValidateScopeRequest checks a key against one required scope.
type ValidateScopeRequest struct {
	Scope string `json:"scope" binding:"required"`
}

// UpdateRateLimitRequest overwrites a key's rate limit.
type UpdateRateLimitRequest struct {
	RateLimit uint64 `json:"rate_limit"`
}

// UpdateScopesRequest fully replaces a key's scope list.
type UpdateScopesRequest struct {
	Scopes []string `json:"scopes"`
}

// ExtendExpirationRequest replaces a key's expiration timestamp.
type ExtendExpirationRequest struct {
	ExpiresAt int64 `json:"expires_at" binding:"required"`
}

// ServiceDTO is the wire representation of a service record.
type ServiceDTO struct {
	Authority        string `json:"authority"`
	Name             string `json:"name"`
	DefaultRateLimit uint64 `json:"default_rate_limit"`
	TotalKeys        uint64 `json:"total_keys"`
	ActiveKeys       uint64 `json:"active_keys"`
}

// KeyDTO is the wire representation of a key record.
type KeyDTO struct {
	ServiceAuthority string   `json:"service_authority"`
	Owner            string   `json:"owner"`
	Sequence         uint64   `json:"sequence"`
	Name             string   `json:"name"`
	Scopes           []string `json:"scopes"`
	RateLimit        uint64   `json:"rate_limit"`
	RequestsToday    uint64   `json:"requests_today"`
	TotalRequests    uint64   `json:"total_requests"`
	LastRequestDay   int64    `json:"last_request_day"`
	CreatedAt        int64    `json:"created_at"`
	ExpiresAt        *int64   `json:"expires_at,omitempty"`
	IsActive         bool     `json:"is_active"`
}

// UsageDTO reports the counters after a successful usage recording.
type UsageDTO struct {
	RequestsToday uint64 `json:"requests_today"`
	RateLimit     uint64 `json:"rate_limit"`
	Remaining     uint64 `json:"remaining"`
	TotalRequests uint64 `json:"total_requests"`
}

// ServiceFromModel converts a domain service record to its wire shape.
func ServiceFromModel(svc *models.Service) *ServiceDTO {
	return &ServiceDTO{
		Authority:        svc.Authority,
		Name:             svc.Name,
		DefaultRateLimit: svc.DefaultRateLimit,
		TotalKeys:        svc.TotalKeys,
		ActiveKeys:       svc.ActiveKeys,
	}
}

// KeyFromModel converts a domain key record to its wire shape.
func KeyFromModel(key *models.APIKey) *KeyDTO {
	var expiresAt *int64
	if key.ExpiresAt != nil {
		v := *key.ExpiresAt
		expiresAt = &v
	}
	return &KeyDTO{
		ServiceAuthority: key.ServiceAuthority,
		Owner:            key.Owner,
		Sequence:         key.Sequence,
		Name:             key.Name,
		Scopes:           append([]string(nil), key.Scopes...),
		RateLimit:        key.RateLimit,
		RequestsToday:    key.RequestsToday,
		TotalRequests:    key.TotalRequests,
		LastRequestDay:   key.LastRequestDay,
		CreatedAt:        key.CreatedAt,
		ExpiresAt:        expiresAt,
		IsActive:         key.IsActive,
	}
}

// UsageFromModel builds the usage snapshot returned by record_request.
func UsageFromModel(key *models.APIKey) *UsageDTO {
	remaining := uint64(0)
	if key.RateLimit > key.RequestsToday {
		remaining = key.RateLimit - key.RequestsToday
	}
	return &UsageDTO{
		RequestsToday: key.RequestsToday,
		RateLimit:     key.RateLimit,
		Remaining:     remaining,
		TotalRequests: key.TotalRequests,
	}
}
