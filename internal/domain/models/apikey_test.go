package models_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/pkg/constants"
	"github.com/turtacn/keygate/pkg/errors"
)

func newTestService(t *testing.T) *models.Service {
	t.Helper()
	svc, appErr := models.NewService("authority-1", "billing-api", 5)
	require.Nil(t, appErr)
	return svc
}

func newTestKey(t *testing.T, svc *models.Service, scopes []string, rateLimit *uint64, expiresAt *int64, now int64) *models.APIKey {
	t.Helper()
	key, appErr := models.NewAPIKey(svc, "owner-1", "reporting", scopes, rateLimit, expiresAt, now)
	require.Nil(t, appErr)
	key.Sequence = svc.AdmitKey()
	return key
}

func uint64Ptr(v uint64) *uint64 { return &v }
func int64Ptr(v int64) *int64    { return &v }

func TestDayBucket(t *testing.T) {
	assert.Equal(t, int64(0), models.DayBucket(0))
	assert.Equal(t, int64(0), models.DayBucket(86399))
	assert.Equal(t, int64(1), models.DayBucket(86400))
	assert.Equal(t, int64(2), models.DayBucket(2*86400+1))

	// Pre-epoch timestamps floor toward negative infinity instead of
	// collapsing into day zero.
	assert.Equal(t, int64(-1), models.DayBucket(-1))
	assert.Equal(t, int64(-1), models.DayBucket(-86400))
	assert.Equal(t, int64(-2), models.DayBucket(-86401))
}

func TestNewAPIKey_Validation(t *testing.T) {
	svc := newTestService(t)
	now := int64(1_000_000)

	t.Run("name too long", func(t *testing.T) {
		_, appErr := models.NewAPIKey(svc, "owner-1", "this-name-is-definitely-over-32-characters", nil, nil, nil, now)
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeNameTooLong, appErr.Code)
	})

	t.Run("too many scopes", func(t *testing.T) {
		scopes := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
		_, appErr := models.NewAPIKey(svc, "owner-1", "k", scopes, nil, nil, now)
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeTooManyScopes, appErr.Code)
	})

	t.Run("scope too long", func(t *testing.T) {
		_, appErr := models.NewAPIKey(svc, "owner-1", "k", []string{"seventeen-chars-x"}, nil, nil, now)
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeScopeTooLong, appErr.Code)
	})

	t.Run("expiration at current time rejected", func(t *testing.T) {
		_, appErr := models.NewAPIKey(svc, "owner-1", "k", nil, nil, int64Ptr(now), now)
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeExpirationInPast, appErr.Code)
	})

	t.Run("defaults from service", func(t *testing.T) {
		key, appErr := models.NewAPIKey(svc, "owner-1", "k", []string{"read"}, nil, nil, now)
		require.Nil(t, appErr)
		assert.Equal(t, uint64(5), key.RateLimit)
		assert.Equal(t, svc.NextSequence(), key.Sequence)
		assert.True(t, key.IsActive)
		assert.Equal(t, uint64(0), key.RequestsToday)
		assert.Equal(t, uint64(0), key.TotalRequests)
		assert.Equal(t, int64(0), key.LastRequestDay)
		assert.Equal(t, now, key.CreatedAt)
		assert.Nil(t, key.ExpiresAt)
	})

	t.Run("explicit rate limit wins", func(t *testing.T) {
		key, appErr := models.NewAPIKey(svc, "owner-1", "k", nil, uint64Ptr(100), nil, now)
		require.Nil(t, appErr)
		assert.Equal(t, uint64(100), key.RateLimit)
	})
}

func TestRecordRequest_DailyLimitScenario(t *testing.T) {
	// Service default limit 5, key without explicit limit: five requests
	// succeed, the sixth rejects without mutation, and the next day admits
	// again with a fresh counter.
	svc := newTestService(t)
	now := int64(10 * 86400)
	key := newTestKey(t, svc, []string{"read"}, nil, nil, now)

	for i := 1; i <= 5; i++ {
		appErr := key.RecordRequest(now)
		require.Nil(t, appErr, "request %d should be admitted", i)
		assert.Equal(t, uint64(i), key.RequestsToday)
		assert.Equal(t, uint64(i), key.TotalRequests)
		assert.Less(t, key.RequestsToday, key.RateLimit+1)
	}

	appErr := key.RecordRequest(now)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeRateLimitExceeded, appErr.Code)
	assert.Equal(t, uint64(5), key.RequestsToday, "rejection must not mutate")
	assert.Equal(t, uint64(5), key.TotalRequests)

	nextDay := now + 86400
	appErr = key.RecordRequest(nextDay)
	require.Nil(t, appErr)
	assert.Equal(t, uint64(1), key.RequestsToday)
	assert.Equal(t, uint64(6), key.TotalRequests)
	assert.Equal(t, models.DayBucket(nextDay), key.LastRequestDay)
}

func TestRecordRequest_RolloverIdempotentWithinDay(t *testing.T) {
	svc := newTestService(t)
	now := int64(5 * 86400)
	key := newTestKey(t, svc, nil, uint64Ptr(10), nil, now)

	require.Nil(t, key.RecordRequest(now))
	day := key.LastRequestDay

	// Same-day calls keep the bucket; LastRequestDay never decreases even
	// when the observed clock moves backwards within the day.
	require.Nil(t, key.RecordRequest(now+100))
	assert.Equal(t, day, key.LastRequestDay)
	require.Nil(t, key.RecordRequest(now-100))
	assert.Equal(t, day, key.LastRequestDay)
	assert.Equal(t, uint64(3), key.RequestsToday)
}

func TestRecordRequest_SkippedDaysCollapseToSingleReset(t *testing.T) {
	svc := newTestService(t)
	start := int64(86400)
	key := newTestKey(t, svc, nil, uint64Ptr(3), nil, start)

	require.Nil(t, key.RecordRequest(start))
	require.Nil(t, key.RecordRequest(start))

	// Seven elapsed days grant one fresh bucket, not seven days of credit.
	later := start + 7*86400
	require.Nil(t, key.RecordRequest(later))
	assert.Equal(t, uint64(1), key.RequestsToday)
	require.Nil(t, key.RecordRequest(later))
	require.Nil(t, key.RecordRequest(later))
	appErr := key.RecordRequest(later)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeRateLimitExceeded, appErr.Code)
}

func TestRecordRequest_ZeroRateLimit(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)
	key := newTestKey(t, svc, nil, uint64Ptr(0), nil, now)

	appErr := key.RecordRequest(now)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeRateLimitExceeded, appErr.Code)

	// Still rejected after any number of day boundaries.
	appErr = key.RecordRequest(now + 30*86400)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeRateLimitExceeded, appErr.Code)
	assert.Equal(t, uint64(0), key.TotalRequests)
}

func TestRecordRequest_PreEpochTimes(t *testing.T) {
	svc := newTestService(t)
	key := newTestKey(t, svc, nil, uint64Ptr(2), nil, -3*86400)
	key.LastRequestDay = -5

	require.Nil(t, key.RecordRequest(-3*86400))
	assert.Equal(t, int64(-3), key.LastRequestDay)
	assert.Equal(t, uint64(1), key.RequestsToday)

	require.Nil(t, key.RecordRequest(0))
	assert.Equal(t, int64(0), key.LastRequestDay)
	assert.Equal(t, uint64(1), key.RequestsToday)
}

func TestRecordRequest_Expiration(t *testing.T) {
	svc := newTestService(t)
	now := int64(50_000)
	key := newTestKey(t, svc, nil, uint64Ptr(100), int64Ptr(now+1000), now)

	require.Nil(t, key.RecordRequest(now+999))

	appErr := key.RecordRequest(now + 1001)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeKeyExpired, appErr.Code)
	assert.Equal(t, uint64(1), key.TotalRequests, "expired rejection must not count")

	// Exactly at the boundary the key is already expired.
	appErr = key.RecordRequest(now + 1000)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeKeyExpired, appErr.Code)
}

func TestRecordRequest_InactiveKey(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)
	key := newTestKey(t, svc, nil, uint64Ptr(10), nil, now)
	require.Nil(t, key.Revoke())

	appErr := key.RecordRequest(now)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeKeyInactive, appErr.Code)
}

func TestRecordRequest_LifetimeCounterSaturates(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)
	key := newTestKey(t, svc, nil, uint64Ptr(10), nil, now)
	key.TotalRequests = math.MaxUint64

	require.Nil(t, key.RecordRequest(now))
	assert.Equal(t, uint64(math.MaxUint64), key.TotalRequests, "lifetime counter clamps instead of wrapping")
	assert.Equal(t, uint64(1), key.RequestsToday)
}

func TestValidateScope(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)

	t.Run("wildcard matches any scope", func(t *testing.T) {
		key := newTestKey(t, svc, []string{"read", "*"}, nil, nil, now)
		assert.Nil(t, key.ValidateScope(now, "write"))
		assert.Nil(t, key.ValidateScope(now, "read"))
	})

	t.Run("exact match only, no prefix semantics", func(t *testing.T) {
		key := newTestKey(t, svc, []string{"read"}, nil, nil, now)
		assert.Nil(t, key.ValidateScope(now, "read"))

		appErr := key.ValidateScope(now, "write")
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeInsufficientPermissions, appErr.Code)

		appErr = key.ValidateScope(now, "rea")
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeInsufficientPermissions, appErr.Code)
	})

	t.Run("inactive key rejected before scope check", func(t *testing.T) {
		key := newTestKey(t, svc, []string{"*"}, nil, nil, now)
		require.Nil(t, key.Revoke())
		appErr := key.ValidateScope(now, "read")
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeKeyInactive, appErr.Code)
	})

	t.Run("expired key rejected before scope check", func(t *testing.T) {
		key := newTestKey(t, svc, []string{"*"}, nil, int64Ptr(now+10), now)
		appErr := key.ValidateScope(now+11, "read")
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeKeyExpired, appErr.Code)
	})
}

func TestRevokeReactivate(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)
	key := newTestKey(t, svc, nil, nil, nil, now)

	require.Nil(t, key.Revoke())
	assert.False(t, key.IsActive)

	appErr := key.Revoke()
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeKeyAlreadyRevoked, appErr.Code)

	require.Nil(t, key.Reactivate(now))
	assert.True(t, key.IsActive)

	appErr = key.Reactivate(now)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeKeyAlreadyActive, appErr.Code)
}

func TestReactivate_ExpiredKeyStaysInactive(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)
	key := newTestKey(t, svc, nil, nil, int64Ptr(now+100), now)

	require.Nil(t, key.Revoke())
	appErr := key.Reactivate(now + 200)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeKeyExpired, appErr.Code)
	assert.False(t, key.IsActive)
}

func TestUpdateRateLimit_NoClampAgainstUsage(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)
	key := newTestKey(t, svc, nil, uint64Ptr(10), nil, now)

	for i := 0; i < 4; i++ {
		require.Nil(t, key.RecordRequest(now))
	}

	// Lowering the limit below current usage is permitted; it just blocks
	// further admissions until rollover.
	key.UpdateRateLimit(2)
	assert.Equal(t, uint64(2), key.RateLimit)
	assert.Equal(t, uint64(4), key.RequestsToday)

	appErr := key.RecordRequest(now)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeRateLimitExceeded, appErr.Code)

	require.Nil(t, key.RecordRequest(now+86400))
	assert.Equal(t, uint64(1), key.RequestsToday)
}

func TestReplaceScopes(t *testing.T) {
	svc := newTestService(t)
	now := int64(1000)
	key := newTestKey(t, svc, []string{"read"}, nil, nil, now)

	t.Run("nine single-char scopes rejected, field unchanged", func(t *testing.T) {
		appErr := key.ReplaceScopes([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i"})
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeTooManyScopes, appErr.Code)
		assert.Equal(t, models.ScopeList{"read"}, key.Scopes)
	})

	t.Run("full replacement, not merge", func(t *testing.T) {
		require.Nil(t, key.ReplaceScopes([]string{"write", "admin"}))
		assert.Equal(t, models.ScopeList{"write", "admin"}, key.Scopes)
		assert.False(t, key.Scopes.Contains("read"))
	})
}

func TestSetExpiration(t *testing.T) {
	svc := newTestService(t)
	now := int64(10_000)
	key := newTestKey(t, svc, nil, nil, int64Ptr(now+5000), now)

	t.Run("past value rejected", func(t *testing.T) {
		appErr := key.SetExpiration(now, now-1)
		require.NotNil(t, appErr)
		assert.Equal(t, constants.ErrCodeExpirationInPast, appErr.Code)
		assert.Equal(t, now+5000, *key.ExpiresAt)
	})

	t.Run("earlier but still future value permitted", func(t *testing.T) {
		require.Nil(t, key.SetExpiration(now, now+100))
		assert.Equal(t, now+100, *key.ExpiresAt)
	})

	t.Run("never-expiring key gains an expiration", func(t *testing.T) {
		eternal := newTestKey(t, svc, nil, nil, nil, now)
		require.Nil(t, eternal.SetExpiration(now, now+50))
		require.NotNil(t, eternal.ExpiresAt)
		assert.Equal(t, now+50, *eternal.ExpiresAt)
	})
}

func TestErrorsAreTyped(t *testing.T) {
	svc := newTestService(t)
	key := newTestKey(t, svc, nil, uint64Ptr(0), nil, 0)

	appErr := key.RecordRequest(0)
	assert.ErrorIs(t, appErr, errors.ErrRateLimitExceeded)
}
