package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/internal/domain/repository"
	"github.com/turtacn/keygate/pkg/errors"
)

// KeyRepository is the PostgreSQL implementation of the key ledger.
type KeyRepository struct {
	db *gorm.DB
}

// NewKeyRepository creates a new KeyRepository.
func NewKeyRepository(db *gorm.DB) repository.KeyRepository {
	return &KeyRepository{db: db}
}

// Create inserts a new key record.
func (r *KeyRepository) Create(ctx context.Context, key *models.APIKey) *errors.AppError {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		return errors.ErrDatabaseOperation.WithError(err)
	}
	return nil
}

// Find retrieves a key by its (service, owner, sequence) identity.
func (r *KeyRepository) Find(ctx context.Context, serviceAuthority, owner string, sequence uint64) (*models.APIKey, *errors.AppError) {
	var key models.APIKey
	err := r.db.WithContext(ctx).
		Where("service_authority = ? AND owner = ? AND sequence = ?", serviceAuthority, owner, sequence).
		First(&key).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrKeyNotFound.
				WithDetail("service_authority", serviceAuthority).
				WithDetail("owner", owner)
		}
		return nil, errors.ErrDatabaseOperation.WithError(err)
	}
	return &key, nil
}

// Update persists all mutable fields of an existing key record.
func (r *KeyRepository) Update(ctx context.Context, key *models.APIKey) *errors.AppError {
	result := r.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("service_authority = ? AND owner = ? AND sequence = ?", key.ServiceAuthority, key.Owner, key.Sequence).
		Updates(map[string]interface{}{
			"name":             key.Name,
			"scopes":           key.Scopes,
			"rate_limit":       key.RateLimit,
			"requests_today":   key.RequestsToday,
			"total_requests":   key.TotalRequests,
			"last_request_day": key.LastRequestDay,
			"expires_at":       key.ExpiresAt,
			"is_active":        key.IsActive,
		})
	if result.Error != nil {
		return errors.ErrDatabaseOperation.WithError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrKeyNotFound.
			WithDetail("service_authority", key.ServiceAuthority).
			WithDetail("owner", key.Owner)
	}
	return nil
}

// ListByService retrieves the keys issued under a service, ordered by owner
// then sequence for stable pagination.
func (r *KeyRepository) ListByService(ctx context.Context, serviceAuthority string, limit, offset int) ([]*models.APIKey, *errors.AppError) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var keys []*models.APIKey
	err := r.db.WithContext(ctx).
		Where("service_authority = ?", serviceAuthority).
		Order("owner, sequence").
		Limit(limit).
		Offset(offset).
		Find(&keys).Error
	if err != nil {
		return nil, errors.ErrDatabaseOperation.WithError(err)
	}
	return keys, nil
}
