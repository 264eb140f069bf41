package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/internal/domain/repository"
	"github.com/turtacn/keygate/pkg/errors"
)

// openTestDB gives each test an isolated in-memory database with the ledger
// schema applied. The repository code itself is driver-agnostic GORM.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A pooled second connection would see its own empty in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Service{}, &models.APIKey{}))
	return db
}

func mustService(t *testing.T, authority string) *models.Service {
	t.Helper()
	svc, appErr := models.NewService(authority, "payments", 100)
	require.Nil(t, appErr)
	return svc
}

func mustKey(t *testing.T, svc *models.Service, owner string) *models.APIKey {
	t.Helper()
	key, appErr := models.NewAPIKey(svc, owner, "reporting", []string{"read"}, nil, nil, 1_700_000_000)
	require.Nil(t, appErr)
	key.Sequence = svc.AdmitKey()
	return key
}

func TestServiceRepository_CreateFindUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewServiceRepository(db)
	ctx := context.Background()

	svc := mustService(t, "authority-1")
	require.Nil(t, repo.Create(ctx, svc))

	appErr := repo.Create(ctx, mustService(t, "authority-1"))
	require.NotNil(t, appErr)
	assert.True(t, appErr.Is(errors.ErrServiceAlreadyExists))

	got, appErr := repo.FindByAuthority(ctx, "authority-1")
	require.Nil(t, appErr)
	assert.Equal(t, "payments", got.Name)
	assert.Equal(t, uint64(100), got.DefaultRateLimit)

	_, appErr = repo.FindByAuthority(ctx, "nobody")
	require.NotNil(t, appErr)
	assert.True(t, appErr.Is(errors.ErrServiceNotFound))

	touchedAt := got.UpdatedAt
	got.TotalKeys = 3
	got.ActiveKeys = 2
	require.Nil(t, repo.Update(ctx, got))

	reloaded, appErr := repo.FindByAuthority(ctx, "authority-1")
	require.Nil(t, appErr)
	assert.Equal(t, uint64(3), reloaded.TotalKeys)
	assert.Equal(t, uint64(2), reloaded.ActiveKeys)
	assert.True(t, reloaded.UpdatedAt.After(touchedAt))
}

func TestKeyRepository_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	services := NewServiceRepository(db)
	keys := NewKeyRepository(db)
	ctx := context.Background()

	svc := mustService(t, "authority-1")
	require.Nil(t, services.Create(ctx, svc))

	key := mustKey(t, svc, "owner-1")
	require.Nil(t, keys.Create(ctx, key))

	got, appErr := keys.Find(ctx, "authority-1", "owner-1", 0)
	require.Nil(t, appErr)
	assert.Equal(t, models.ScopeList{"read"}, got.Scopes)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.ExpiresAt)

	_, appErr = keys.Find(ctx, "authority-1", "owner-1", 99)
	require.NotNil(t, appErr)
	assert.True(t, appErr.Is(errors.ErrKeyNotFound))

	// Usage counters and the expiry pointer survive a round trip.
	touchedAt := got.UpdatedAt
	expiry := int64(1_800_000_000)
	got.RequestsToday = 4
	got.TotalRequests = 12
	got.LastRequestDay = 19_676
	got.ExpiresAt = &expiry
	got.IsActive = false
	require.Nil(t, keys.Update(ctx, got))

	reloaded, appErr := keys.Find(ctx, "authority-1", "owner-1", 0)
	require.Nil(t, appErr)
	assert.Equal(t, uint64(4), reloaded.RequestsToday)
	assert.Equal(t, uint64(12), reloaded.TotalRequests)
	assert.Equal(t, int64(19_676), reloaded.LastRequestDay)
	require.NotNil(t, reloaded.ExpiresAt)
	assert.Equal(t, expiry, *reloaded.ExpiresAt)
	assert.False(t, reloaded.IsActive)
	assert.True(t, reloaded.UpdatedAt.After(touchedAt))
}

func TestKeyRepository_ListByService(t *testing.T) {
	db := openTestDB(t)
	services := NewServiceRepository(db)
	keys := NewKeyRepository(db)
	ctx := context.Background()

	svc := mustService(t, "authority-1")
	require.Nil(t, services.Create(ctx, svc))
	other := mustService(t, "authority-2")
	require.Nil(t, services.Create(ctx, other))

	for i := 0; i < 3; i++ {
		require.Nil(t, keys.Create(ctx, mustKey(t, svc, "owner-1")))
	}
	require.Nil(t, keys.Create(ctx, mustKey(t, other, "owner-1")))

	listed, appErr := keys.ListByService(ctx, "authority-1", 10, 0)
	require.Nil(t, appErr)
	require.Len(t, listed, 3)
	assert.Equal(t, uint64(0), listed[0].Sequence)
	assert.Equal(t, uint64(2), listed[2].Sequence)

	page, appErr := keys.ListByService(ctx, "authority-1", 2, 2)
	require.Nil(t, appErr)
	require.Len(t, page, 1)
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	svc := mustService(t, "authority-1")

	appErr := uow.WithinTx(ctx, func(services repository.ServiceRepository, keys repository.KeyRepository) *errors.AppError {
		if appErr := services.Create(ctx, svc); appErr != nil {
			return appErr
		}
		return errors.ErrInvalidRequest
	})
	require.NotNil(t, appErr)
	assert.True(t, appErr.Is(errors.ErrInvalidRequest))

	_, appErr = NewServiceRepository(db).FindByAuthority(ctx, "authority-1")
	require.NotNil(t, appErr)
	assert.True(t, appErr.Is(errors.ErrServiceNotFound))
}

func TestUnitOfWork_CommitsIssuanceAtomically(t *testing.T) {
	db := openTestDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	svc := mustService(t, "authority-1")
	require.Nil(t, NewServiceRepository(db).Create(ctx, svc))

	appErr := uow.WithinTx(ctx, func(services repository.ServiceRepository, keys repository.KeyRepository) *errors.AppError {
		loaded, appErr := services.FindByAuthority(ctx, "authority-1")
		if appErr != nil {
			return appErr
		}
		key := mustKey(t, loaded, "owner-1")
		if appErr := keys.Create(ctx, key); appErr != nil {
			return appErr
		}
		return services.Update(ctx, loaded)
	})
	require.Nil(t, appErr)

	reloaded, appErr := NewServiceRepository(db).FindByAuthority(ctx, "authority-1")
	require.Nil(t, appErr)
	assert.Equal(t, uint64(1), reloaded.TotalKeys)
	assert.Equal(t, uint64(1), reloaded.ActiveKeys)

	_, appErr = NewKeyRepository(db).Find(ctx, "authority-1", "owner-1", 0)
	require.Nil(t, appErr)
}
