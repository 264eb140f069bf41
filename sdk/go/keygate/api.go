package keygate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Service is a service registry record.
type Service struct {
	Authority        string `json:"authority"`
	Name             string `json:"name"`
	DefaultRateLimit uint64 `json:"default_rate_limit"`
	TotalKeys        uint64 `json:"total_keys"`
	ActiveKeys       uint64 `json:"active_keys"`
}

// Key is a key ledger record.
type Key struct {
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

// Usage is the allowance snapshot returned by RecordRequest.
type Usage struct {
	RequestsToday uint64 `json:"requests_today"`
	RateLimit     uint64 `json:"rate_limit"`
	Remaining     uint64 `json:"remaining"`
	TotalRequests uint64 `json:"total_requests"`
}

// CreateKeyParams are the issuance parameters. Nil RateLimit inherits the
// service default; nil ExpiresAt issues a non-expiring key.
type CreateKeyParams struct {
	Name      string   `json:"name"`
	Scopes    []string `json:"scopes"`
	RateLimit *uint64  `json:"rate_limit,omitempty"`
	ExpiresAt *int64   `json:"expires_at,omitempty"`
}

func keyPath(serviceAuthority, owner string, sequence uint64) string {
	return fmt.Sprintf("/v1/services/%s/keys/%s/%d",
		url.PathEscape(serviceAuthority), url.PathEscape(owner), sequence)
}

// CreateService registers the calling signer as a new service authority.
func (c *Client) CreateService(ctx context.Context, name string, defaultRateLimit uint64) (*Service, error) {
	body := map[string]interface{}{"name": name, "default_rate_limit": defaultRateLimit}
	var svc Service
	if err := c.do(ctx, http.MethodPost, "/v1/services", body, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// GetService retrieves a service record.
func (c *Client) GetService(ctx context.Context, authority string) (*Service, error) {
	var svc Service
	if err := c.do(ctx, http.MethodGet, "/v1/services/"+url.PathEscape(authority), nil, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// CreateKey issues a key under the service; the calling signer becomes its owner.
func (c *Client) CreateKey(ctx context.Context, serviceAuthority string, params CreateKeyParams) (*Key, error) {
	var key Key
	path := "/v1/services/" + url.PathEscape(serviceAuthority) + "/keys"
	if err := c.do(ctx, http.MethodPost, path, params, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// GetKey retrieves a key record.
func (c *Client) GetKey(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*Key, error) {
	var key Key
	if err := c.do(ctx, http.MethodGet, keyPath(serviceAuthority, owner, sequence), nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// ListKeys retrieves the keys issued under a service.
func (c *Client) ListKeys(ctx context.Context, serviceAuthority string, limit, offset int) ([]Key, error) {
	var keys []Key
	path := fmt.Sprintf("/v1/services/%s/keys?limit=%d&offset=%d", url.PathEscape(serviceAuthority), limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// RecordRequest counts one request against the key's daily allowance. The
// calling signer must be the service authority.
func (c *Client) RecordRequest(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*Usage, error) {
	var usage Usage
	if err := c.do(ctx, http.MethodPost, keyPath(serviceAuthority, owner, sequence)+"/requests", nil, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// ValidateScope checks the key carries the required scope.
func (c *Client) ValidateScope(ctx context.Context, serviceAuthority, owner string, sequence uint64, scope string) error {
	body := map[string]string{"scope": scope}
	return c.do(ctx, http.MethodPost, keyPath(serviceAuthority, owner, sequence)+"/validate", body, nil)
}

// Revoke deactivates a key.
func (c *Client) Revoke(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*Key, error) {
	var key Key
	if err := c.do(ctx, http.MethodPost, keyPath(serviceAuthority, owner, sequence)+"/revoke", nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// Reactivate re-enables a revoked, unexpired key.
func (c *Client) Reactivate(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*Key, error) {
	var key Key
	if err := c.do(ctx, http.MethodPost, keyPath(serviceAuthority, owner, sequence)+"/reactivate", nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateRateLimit overwrites the key's daily rate limit.
func (c *Client) UpdateRateLimit(ctx context.Context, serviceAuthority, owner string, sequence uint64, rateLimit uint64) (*Key, error) {
	var key Key
	body := map[string]uint64{"rate_limit": rateLimit}
	if err := c.do(ctx, http.MethodPut, keyPath(serviceAuthority, owner, sequence)+"/rate-limit", body, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateScopes fully replaces the key's scope list.
func (c *Client) UpdateScopes(ctx context.Context, serviceAuthority, owner string, sequence uint64, scopes []string) (*Key, error) {
	var key Key
	body := map[string][]string{"scopes": scopes}
	if err := c.do(ctx, http.MethodPut, keyPath(serviceAuthority, owner, sequence)+"/scopes", body, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// ExtendExpiration sets the key's expiration to a strictly future timestamp.
func (c *Client) ExtendExpiration(ctx context.Context, serviceAuthority, owner string, sequence uint64, expiresAt int64) (*Key, error) {
	var key Key
	body := map[string]int64{"expires_at": expiresAt}
	if err := c.do(ctx, http.MethodPut, keyPath(serviceAuthority, owner, sequence)+"/expiration", body, &key); err != nil {
		return nil, err
	}
	return &key, nil
}
