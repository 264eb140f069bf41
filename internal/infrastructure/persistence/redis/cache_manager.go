package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	localcache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/keygate/internal/domain/models"
	domainsvc "github.com/turtacn/keygate/internal/domain/service"
	"github.com/turtacn/keygate/pkg/logger"
)

// RecordCache is a two-tier cache for service and key records: an in-process
// cache with a short TTL in front of Redis. Cache failures degrade to misses;
// the read paths fall back to the repository, so correctness never depends on
// the cache.
type RecordCache struct {
	client   *redis.Client
	local    *localcache.Cache
	ttl      time.Duration
	localTTL time.Duration
	logger   logger.Logger
}

// NewRecordCache creates a RecordCache. A nil client disables the remote tier
// and leaves only the in-process cache, which is the fallback mode when no
// Redis endpoint is configured.
func NewRecordCache(client *redis.Client, ttl, localTTL time.Duration, log logger.Logger) domainsvc.RecordCache {
	return &RecordCache{
		client:   client,
		local:    localcache.New(localTTL, 2*localTTL),
		ttl:      ttl,
		localTTL: localTTL,
		logger:   log.WithComponent("RecordCache"),
	}
}

func serviceCacheKey(authority string) string {
	return fmt.Sprintf("keygate:service:%s", authority)
}

func keyCacheKey(serviceAuthority, owner string, sequence uint64) string {
	return fmt.Sprintf("keygate:key:%s:%s:%d", serviceAuthority, owner, sequence)
}

// GetKey returns a cached key record, checking the local tier first.
func (c *RecordCache) GetKey(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*models.APIKey, bool) {
	cacheKey := keyCacheKey(serviceAuthority, owner, sequence)

	if cached, ok := c.local.Get(cacheKey); ok {
		if key, ok := cached.(*models.APIKey); ok {
			return cloneKey(key), true
		}
	}

	var key models.APIKey
	if !c.remoteGet(ctx, cacheKey, &key) {
		return nil, false
	}
	c.local.Set(cacheKey, cloneKey(&key), c.localTTL)
	return &key, true
}

// SetKey stores a key record in both tiers.
func (c *RecordCache) SetKey(ctx context.Context, key *models.APIKey) {
	cacheKey := keyCacheKey(key.ServiceAuthority, key.Owner, key.Sequence)
	c.local.Set(cacheKey, cloneKey(key), c.localTTL)
	c.remoteSet(ctx, cacheKey, key)
}

// InvalidateKey drops a key record from both tiers.
func (c *RecordCache) InvalidateKey(ctx context.Context, serviceAuthority, owner string, sequence uint64) {
	cacheKey := keyCacheKey(serviceAuthority, owner, sequence)
	c.local.Delete(cacheKey)
	c.remoteDelete(ctx, cacheKey)
}

// GetService returns a cached service record.
func (c *RecordCache) GetService(ctx context.Context, authority string) (*models.Service, bool) {
	cacheKey := serviceCacheKey(authority)

	if cached, ok := c.local.Get(cacheKey); ok {
		if svc, ok := cached.(*models.Service); ok {
			clone := *svc
			return &clone, true
		}
	}

	var svc models.Service
	if !c.remoteGet(ctx, cacheKey, &svc) {
		return nil, false
	}
	clone := svc
	c.local.Set(cacheKey, &clone, c.localTTL)
	return &svc, true
}

// SetService stores a service record in both tiers.
func (c *RecordCache) SetService(ctx context.Context, svc *models.Service) {
	cacheKey := serviceCacheKey(svc.Authority)
	clone := *svc
	c.local.Set(cacheKey, &clone, c.localTTL)
	c.remoteSet(ctx, cacheKey, svc)
}

// InvalidateService drops a service record from both tiers.
func (c *RecordCache) InvalidateService(ctx context.Context, authority string) {
	cacheKey := serviceCacheKey(authority)
	c.local.Delete(cacheKey)
	c.remoteDelete(ctx, cacheKey)
}

func (c *RecordCache) remoteGet(ctx context.Context, cacheKey string, out interface{}) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn(ctx, "cache read failed", logger.String("key", cacheKey), logger.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn(ctx, "cache entry corrupt, dropping", logger.String("key", cacheKey), logger.Error(err))
		c.remoteDelete(ctx, cacheKey)
		return false
	}
	return true
}

func (c *RecordCache) remoteSet(ctx context.Context, cacheKey string, value interface{}) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn(ctx, "cache marshal failed", logger.String("key", cacheKey), logger.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "cache write failed", logger.String("key", cacheKey), logger.Error(err))
	}
}

func (c *RecordCache) remoteDelete(ctx context.Context, cacheKey string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.Warn(ctx, "cache delete failed", logger.String("key", cacheKey), logger.Error(err))
	}
}

func cloneKey(key *models.APIKey) *models.APIKey {
	clone := *key
	clone.Scopes = append(models.ScopeList(nil), key.Scopes...)
	if key.ExpiresAt != nil {
		v := *key.ExpiresAt
		clone.ExpiresAt = &v
	}
	return &clone
}
