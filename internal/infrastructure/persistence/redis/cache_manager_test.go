package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/pkg/logger"
)

func newTestCache(t *testing.T) (*RecordCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRecordCache(client, 5*time.Minute, 50*time.Millisecond, logger.NewNoopLogger())
	return cache.(*RecordCache), mr
}

func testKey() *models.APIKey {
	expiry := int64(1_800_000_000)
	return &models.APIKey{
		ServiceAuthority: "authority-1",
		Owner:            "owner-1",
		Sequence:         3,
		Name:             "reporting",
		Scopes:           models.ScopeList{"read", "write"},
		RateLimit:        5,
		RequestsToday:    2,
		TotalRequests:    10,
		LastRequestDay:   19_676,
		CreatedAt:        1_700_000_000,
		ExpiresAt:        &expiry,
		IsActive:         true,
	}
}

func TestRecordCache_KeyRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.GetKey(ctx, "authority-1", "owner-1", 3)
	assert.False(t, ok)

	cache.SetKey(ctx, testKey())

	got, ok := cache.GetKey(ctx, "authority-1", "owner-1", 3)
	require.True(t, ok)
	assert.Equal(t, models.ScopeList{"read", "write"}, got.Scopes)
	assert.Equal(t, uint64(2), got.RequestsToday)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, int64(1_800_000_000), *got.ExpiresAt)

	// Mutating the returned record must not poison the cached copy.
	got.RequestsToday = 99
	again, ok := cache.GetKey(ctx, "authority-1", "owner-1", 3)
	require.True(t, ok)
	assert.Equal(t, uint64(2), again.RequestsToday)
}

func TestRecordCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.SetKey(ctx, testKey())
	cache.InvalidateKey(ctx, "authority-1", "owner-1", 3)

	_, ok := cache.GetKey(ctx, "authority-1", "owner-1", 3)
	assert.False(t, ok)
}

func TestRecordCache_LocalTierSurvivesRedisLoss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.SetKey(ctx, testKey())
	mr.Close()

	// Still served from the in-process tier.
	_, ok := cache.GetKey(ctx, "authority-1", "owner-1", 3)
	assert.True(t, ok)
}

func TestRecordCache_ServiceRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	svc := &models.Service{
		Authority:        "authority-1",
		Name:             "payments",
		DefaultRateLimit: 100,
		TotalKeys:        4,
		ActiveKeys:       3,
	}
	cache.SetService(ctx, svc)

	got, ok := cache.GetService(ctx, "authority-1")
	require.True(t, ok)
	assert.Equal(t, uint64(4), got.TotalKeys)

	cache.InvalidateService(ctx, "authority-1")
	_, ok = cache.GetService(ctx, "authority-1")
	assert.False(t, ok)
}

func TestRecordCache_NoRemoteTier(t *testing.T) {
	cache := NewRecordCache(nil, 5*time.Minute, time.Minute, logger.NewNoopLogger())
	ctx := context.Background()

	cache.SetKey(ctx, testKey())
	_, ok := cache.GetKey(ctx, "authority-1", "owner-1", 3)
	assert.True(t, ok)
}
